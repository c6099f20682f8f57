package upload

import (
	"net/url"

	"github.com/trajector/portal/internal/model"
)

// DefaultIdentity fills in missing deep-link parameters.
var DefaultIdentity = model.Identity{Name: "Akbar", Phone: "919670867797"}

// ResolveIdentity picks the name and phone sent with a batch. A signed-in
// session supplies the name; otherwise the deep-link query does. Missing
// values fall back to defaults.
func ResolveIdentity(s *model.Session, q url.Values, defaults model.Identity) model.Identity {
	id := model.Identity{Name: q.Get("name"), Phone: q.Get("phone")}
	if s != nil {
		id.Name = s.Identity
	}
	if id.Name == "" {
		id.Name = defaults.Name
	}
	if id.Phone == "" {
		id.Phone = defaults.Phone
	}
	return id
}
