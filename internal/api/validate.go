package api

import (
	"fmt"
	"time"
)

type generateRequest struct {
	Date         string `json:"date"`
	TimeBudgetMs int    `json:"timeBudgetMs,omitempty"`
	Algorithm    string `json:"algorithm,omitempty"`
	Seed         int64  `json:"seed,omitempty"`
}

func validateGenerateRequest(req *generateRequest) error {
	if req.Date == "" {
		return fmt.Errorf("date is required")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %v", err)
	}
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	if req.Algorithm != "" && req.Algorithm != "greedy" && req.Algorithm != "local_search" {
		return fmt.Errorf("invalid algorithm: %s (allowed: greedy, local_search)", req.Algorithm)
	}
	return nil
}
