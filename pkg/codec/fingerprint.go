package codec

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dd0wney/anchorlink/pkg/mesh"
)

// namespace scopes run fingerprints.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/dd0wney/anchorlink/fingerprint"))

// Fingerprint derives a name-based UUID from the input model and the
// effective settings. Identical inputs always give the same id.
func Fingerprint(model *mesh.Model, settings any) (uuid.UUID, error) {
	m, err := json.Marshal(model)
	if err != nil {
		return uuid.Nil, fmt.Errorf("fingerprint model: %w", err)
	}
	s, err := json.Marshal(settings)
	if err != nil {
		return uuid.Nil, fmt.Errorf("fingerprint settings: %w", err)
	}

	data := make([]byte, 0, len(m)+len(s)+1)
	data = append(data, m...)
	data = append(data, 0)
	data = append(data, s...)
	return uuid.NewSHA1(namespace, data), nil
}
