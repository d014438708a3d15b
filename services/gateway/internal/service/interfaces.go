package service

import (
	"context"
	"time"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=Notifier --dir=. --output=./mocks --outpkg=mocks
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=CodeGenerator --dir=. --output=./mocks --outpkg=mocks

// Confirmation tells the merchant that a payment was settled
type Confirmation struct {
	ExternalReference string
	SettledAt         time.Time
}

// Notifier delivers a Confirmation to the merchant (webhook, Kafka)
type Notifier interface {
	Notify(ctx context.Context, c Confirmation) error
}

// CodeGenerator renders the scannable code for a wallet URL
type CodeGenerator interface {
	Generate(content string) (string, error)
}
