package engine

// DeepMerge merges a loosely-typed patch into a base record. Objects merge
// key-by-key recursively; arrays, scalars and explicit nulls replace the
// base value wholesale. Neither input is mutated.
func DeepMerge(base, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}

	for k, patchVal := range patch {
		baseMap, baseOK := merged[k].(map[string]any)
		patchMap, patchOK := patchVal.(map[string]any)
		if baseOK && patchOK {
			merged[k] = DeepMerge(baseMap, patchMap)
			continue
		}
		merged[k] = patchVal
	}

	return merged
}
