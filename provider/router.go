/*
Copyright 2025 ReelForge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package provider

import (
	"context"
	"strings"

	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Quality tiers. Content categories map onto a tier, and each tier has
// its own provider fallback chain.
const (
	TierPremium  = "premium"
	TierStandard = "standard"
	TierEconomy  = "economy"
)

var categoryTiers = map[string]string{
	"finance":   TierPremium,
	"business":  TierPremium,
	"luxury":    TierPremium,
	"tech":      TierStandard,
	"news":      TierStandard,
	"education": TierStandard,
	"comedy":    TierEconomy,
	"memes":     TierEconomy,
	"lifestyle": TierEconomy,
}

// Fallback chains. The first entry is the tier's preferred backend; the
// rest are tried in order when it fails.
var tierChains = map[string][]string{
	TierPremium:  {"sora", "veo", "runway", "luma"},
	TierStandard: {"runway", "veo", "luma", "sora"},
	TierEconomy:  {"luma", "runway", "veo", "sora"},
}

var tierRates = map[string]decimal.Decimal{
	TierPremium:  decimal.NewFromFloat(0.50),
	TierStandard: decimal.NewFromFloat(0.25),
	TierEconomy:  decimal.NewFromFloat(0.12),
}

// TierForCategory maps a content category to its quality tier. Unknown
// categories fall back to standard.
func TierForCategory(category string) string {
	if tier, ok := categoryTiers[strings.ToLower(category)]; ok {
		return tier
	}
	return TierStandard
}

// Router dispatches generation requests across the registered adapters,
// walking the tier's fallback chain until one succeeds. It holds no
// per-request state.
type Router struct {
	adapters map[string]Adapter
}

// NewRouter builds a router with one adapter per configured backend.
// Backends with no API key are registered as unavailable rather than
// omitted, so the chain walk never has to check for missing entries.
func NewRouter(conf *config.Configuration) *Router {
	r := &Router{adapters: make(map[string]Adapter)}
	r.Register(buildAdapter("sora", conf.Providers.Sora, func(c config.ProviderConfig) Adapter { return NewSoraAdapter(c) }))
	r.Register(buildAdapter("veo", conf.Providers.Veo, func(c config.ProviderConfig) Adapter { return NewVeoAdapter(c) }))
	r.Register(buildAdapter("runway", conf.Providers.Runway, func(c config.ProviderConfig) Adapter { return NewRunwayAdapter(c) }))
	r.Register(buildAdapter("luma", conf.Providers.Luma, func(c config.ProviderConfig) Adapter { return NewLumaAdapter(c) }))
	return r
}

func buildAdapter(name string, cfg config.ProviderConfig, build func(config.ProviderConfig) Adapter) Adapter {
	if cfg.APIKey == "" {
		logrus.Warnf("provider %s has no API key, registering as unavailable", name)
		return NewUnavailableAdapter(name)
	}
	return build(cfg)
}

// Register adds or replaces an adapter under its own name.
func (r *Router) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Adapter returns the registered adapter by name, or nil.
func (r *Router) Adapter(name string) Adapter {
	return r.adapters[name]
}

// Route generates a video for the job, trying the explicitly requested
// provider first (when registered) and then the tier fallback chain.
// Each backend is invoked at most once. When every backend fails the
// result carries Provider "none" and the accumulated failure reasons.
func (r *Router) Route(ctx context.Context, job *model.GenerationJob) *model.ProviderResult {
	tier := TierForCategory(job.Category)
	chain := tierChains[tier]

	var candidates []string
	if job.Provider != "" {
		if _, ok := r.adapters[job.Provider]; ok {
			candidates = append(candidates, job.Provider)
		} else {
			logrus.Warnf("requested provider %s is not registered, using %s tier chain", job.Provider, tier)
		}
	}
	for _, name := range chain {
		if len(candidates) > 0 && candidates[0] == name {
			continue
		}
		candidates = append(candidates, name)
	}

	var reasons []string
	for _, name := range candidates {
		adapter, ok := r.adapters[name]
		if !ok {
			continue
		}

		result := adapter.Generate(ctx, job)
		if result.Success {
			return result
		}

		logrus.Infof("provider %s failed for job %s: %s", name, job.JobID, result.Err)
		reasons = append(reasons, name+": "+result.Err)
	}

	return &model.ProviderResult{
		Success:  false,
		Provider: "none",
		Cost:     decimal.Zero,
		Err:      "all providers failed: " + strings.Join(reasons, "; "),
	}
}

// EstimateCost predicts, before any provider is chosen, which backend the
// category's tier would try first and what the generation would cost at
// the tier's per-second rate.
func (r *Router) EstimateCost(category string, seconds float64) (string, decimal.Decimal, string) {
	tier := TierForCategory(category)
	cost := decimal.NewFromFloat(seconds).Mul(tierRates[tier])
	return tierChains[tier][0], cost, tier
}
