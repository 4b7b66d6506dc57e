//go:generate mockgen -destination=mock_observer.go -package=mocks github.com/alejoacosta74/coinbase-api/internal/dispatcher Observer

package mocks
