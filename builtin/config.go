package builtin

// YAML decoding yields int64, uint64 or float64 for numbers depending on
// the literal, so numeric settings are read through these helpers.

func stringConfig(cfg map[string]any, key, def string) string {
	if s, ok := cfg[key].(string); ok {
		return s
	}
	return def
}

func boolConfig(cfg map[string]any, key string, def bool) bool {
	if b, ok := cfg[key].(bool); ok {
		return b
	}
	return def
}

func floatConfig(cfg map[string]any, key string) (float64, bool) {
	switch v := cfg[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func intConfig(cfg map[string]any, key string) (int, bool) {
	f, ok := floatConfig(cfg, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}
