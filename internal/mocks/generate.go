package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/team --output domain/team --outpkg teammock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name ConversationRepository --dir ../domain/advisor --output domain/advisor --outpkg advisormock --filename conversation_repository_mock.go
