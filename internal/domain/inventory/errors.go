package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrMaxStockExceeded  = errors.New("max stock exceeded")
)

// InsufficientStockError reports an attempted overdraw of an article.
type InsufficientStockError struct {
	ArticleID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for article %d: requested %d, available %d",
		e.ArticleID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// MaxStockError reports a receive that would push an article over its
// configured maximum.
type MaxStockError struct {
	ArticleID int64
	Max       int64
	Resulting int64
}

func (e *MaxStockError) Error() string {
	return fmt.Sprintf("receiving would raise article %d stock to %d, above the maximum %d",
		e.ArticleID, e.Resulting, e.Max)
}

func (e *MaxStockError) Unwrap() error { return ErrMaxStockExceeded }
