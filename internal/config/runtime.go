// Package config also contains the runtime trading-config store mutated by external callers.
package config

import (
	"fmt"
	"sync"
)

// Store guards the live trading configuration. The admission gate reads it on
// every signal; callers mutate it only through Update.
type Store struct {
	mu  sync.RWMutex
	cfg Trading
}

// NewStore seeds the store from the loaded YAML trading section.
func NewStore(cfg Trading) *Store {
	return &Store{cfg: cloneTrading(cfg)}
}

// Current returns a copy of the live trading configuration.
func (s *Store) Current() Trading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTrading(s.cfg)
}

// Patch carries optional field updates. Nil members leave their field alone;
// ClearStrategyFilter removes the filter so the legacy OnlyRSI rule applies
// again.
type Patch struct {
	Enabled              *bool
	AutoAssetSwitch      *bool
	TradeAmount          *float64
	MinPayoutPercent     *float64
	MaxDrawdownPercent   *float64
	MaxConsecutiveLosses *int
	ExpirySeconds        *int
	OnlyRSI              *bool
	StrategyFilter       *StrategyFilter
	ClearStrategyFilter  bool
}

// Update validates and applies each patched field independently. Out-of-range
// fields are rejected with one error each while the valid fields in the same
// patch still take effect.
func (s *Store) Update(p Patch) []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if p.Enabled != nil {
		s.cfg.Enabled = *p.Enabled
	}
	if p.AutoAssetSwitch != nil {
		s.cfg.AutoAssetSwitch = *p.AutoAssetSwitch
	}
	if p.TradeAmount != nil {
		if *p.TradeAmount <= 0 || *p.TradeAmount > 10000 {
			errs = append(errs, fmt.Errorf("tradeAmount must be in (0, 10000], got %v", *p.TradeAmount))
		} else {
			s.cfg.TradeAmount = *p.TradeAmount
		}
	}
	if p.MinPayoutPercent != nil {
		if *p.MinPayoutPercent < 0 || *p.MinPayoutPercent > 100 {
			errs = append(errs, fmt.Errorf("minPayoutPercent must be in [0, 100], got %v", *p.MinPayoutPercent))
		} else {
			s.cfg.MinPayoutPercent = *p.MinPayoutPercent
		}
	}
	if p.MaxDrawdownPercent != nil {
		if *p.MaxDrawdownPercent < 0 || *p.MaxDrawdownPercent > 100 {
			errs = append(errs, fmt.Errorf("maxDrawdownPercent must be in [0, 100], got %v", *p.MaxDrawdownPercent))
		} else {
			s.cfg.MaxDrawdownPercent = *p.MaxDrawdownPercent
		}
	}
	if p.MaxConsecutiveLosses != nil {
		if *p.MaxConsecutiveLosses < 1 {
			errs = append(errs, fmt.Errorf("maxConsecutiveLosses must be >= 1, got %d", *p.MaxConsecutiveLosses))
		} else {
			s.cfg.MaxConsecutiveLosses = *p.MaxConsecutiveLosses
		}
	}
	if p.ExpirySeconds != nil {
		if *p.ExpirySeconds < 1 || *p.ExpirySeconds > 3600 {
			errs = append(errs, fmt.Errorf("expirySeconds must be in [1, 3600], got %d", *p.ExpirySeconds))
		} else {
			s.cfg.ExpirySeconds = *p.ExpirySeconds
		}
	}
	if p.OnlyRSI != nil {
		s.cfg.OnlyRSI = *p.OnlyRSI
	}
	switch {
	case p.ClearStrategyFilter:
		s.cfg.StrategyFilter = nil
	case p.StrategyFilter != nil:
		if p.StrategyFilter.Mode != "allowlist" && p.StrategyFilter.Mode != "denylist" {
			errs = append(errs, fmt.Errorf("strategyFilter.mode must be allowlist or denylist, got %q", p.StrategyFilter.Mode))
		} else {
			s.cfg.StrategyFilter = cloneFilter(p.StrategyFilter)
		}
	}
	return errs
}

func cloneTrading(cfg Trading) Trading {
	out := cfg
	out.StrategyFilter = cloneFilter(cfg.StrategyFilter)
	return out
}

func cloneFilter(f *StrategyFilter) *StrategyFilter {
	if f == nil {
		return nil
	}
	cp := StrategyFilter{Mode: f.Mode, Patterns: append([]string(nil), f.Patterns...)}
	return &cp
}
