package registry

import (
	"encoding/json"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

// mergeInto aplica o patch JSON sobre o documento atual.
// Semântica de JSON merge patch: objetos são mesclados recursivamente, null remove a
// chave e qualquer outro valor substitui o anterior. Chaves protegidas são ignoradas.
func mergeInto[T any](cur T, patch []byte, protected ...string) (T, error) {
	var zero T

	var changes map[string]any
	if err := json.Unmarshal(patch, &changes); err != nil || changes == nil {
		return zero, model.Invalid("body must be a JSON object")
	}
	for _, k := range protected {
		delete(changes, k)
	}

	b, err := json.Marshal(cur)
	if err != nil {
		return zero, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return zero, err
	}
	mergeMaps(doc, changes)

	merged, err := json.Marshal(doc)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return zero, model.Invalid("%v", err)
	}
	return out, nil
}

func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if v == nil {
			delete(dst, k)
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := dst[k].(map[string]any); ok {
				mergeMaps(cur, sub)
				continue
			}
		}
		dst[k] = v
	}
}
