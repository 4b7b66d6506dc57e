//go:generate mockgen -destination=mock_subscription.go -package=mocks github.com/alejoacosta74/coinbase-api/internal/subscription Sender,MessageSigner

package mocks
