package provider

// Router maps a mission country to the adapter variant responsible for it.
// Countries not claimed by any authenticated portal fall back to the public
// aggregator.
type Router struct {
	fallback  Adapter
	byCountry map[string]Adapter
}

// NewRouter builds a router around the aggregator fallback. Portal adapters
// claim their country tokens via SetCountries.
func NewRouter(fallback Adapter) *Router {
	return &Router{
		fallback:  fallback,
		byCountry: make(map[string]Adapter),
	}
}

// SetCountries assigns an adapter to each of the given country tokens. Two
// portals may share a group but never a country, so later claims for the
// same token replace earlier ones.
func (r *Router) SetCountries(tokens []string, adapter Adapter) {
	for _, token := range tokens {
		r.byCountry[token] = adapter
	}
}

// Resolve returns the adapter owning the given country token. Unclaimed
// countries resolve to the aggregator.
func (r *Router) Resolve(country string) Adapter {
	if adapter, ok := r.byCountry[country]; ok && adapter != nil {
		return adapter
	}
	return r.fallback
}
