// Package routes serves comparisons and their artifacts to the viewer and to distributed workers.
package routes

import (
	"errors"
	"net/http"
	"strings"

	v1 "regiondiff/api/v1"

	"golang.org/x/xerrors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var UnsupportedKindError = errors.New("unsupported resource kind")

// resource maps the {group}/{version}/{kind} path values to the comparisons resource. The kind
// may be given in singular or plural form.
func resource(r *http.Request) (schema.GroupVersionResource, error) {
	group := r.PathValue("group")
	version := r.PathValue("version")
	kind := strings.ToLower(r.PathValue("kind"))

	if group != v1.GroupVersion.Group || version != v1.GroupVersion.Version {
		return schema.GroupVersionResource{}, xerrors.Errorf("%s/%s: %w", group, version, UnsupportedKindError)
	}
	switch kind {
	case "comparison", "comparisons":
		return v1.GroupVersion.WithResource("comparisons"), nil
	default:
		return schema.GroupVersionResource{}, xerrors.Errorf("%s: %w", kind, UnsupportedKindError)
	}
}
