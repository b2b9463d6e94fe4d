// Package ports defines the external verdict sources consulted for URL
// payloads.
package ports

import "context"

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Finding is a collaborator's answer for one URL.
type Finding struct {
	Pass   bool
	Detail string
}

// ReputationScanner reports a URL's standing with a reputation service.
type ReputationScanner interface {
	Scan(ctx context.Context, url string) (Finding, error)
}

// RiskAssessor gives a heuristic or model-based risk opinion on a URL.
type RiskAssessor interface {
	Assess(ctx context.Context, url string) (Finding, error)
}
