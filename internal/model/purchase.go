package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Purchase represents a single logged purchase against a budget category.
type Purchase struct {
	Date     time.Time
	ID       string
	Category string
	Note     string
	Hash     string
	Amount   float64
}

// GenerateHash creates a stable hash for duplicate detection across imports.
func (p *Purchase) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		p.Date.Format("2006-01-02"),
		p.Amount,
		p.Category,
		p.Note)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
