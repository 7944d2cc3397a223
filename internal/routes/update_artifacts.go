package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"regiondiff/internal/controllers"
	"regiondiff/internal/myhttp"
	"regiondiff/internal/pipeline"

	"golang.org/x/xerrors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
)

// UpdateArtifacts records the result a distributed worker PATCHes back in the comparison status.
func UpdateArtifacts(dynamicClient dynamic.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gvr, err := resource(r)
		if err != nil {
			myhttp.WriteError(w, r, http.StatusBadRequest, err)
			return
		}

		var output pipeline.Output
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&output); err != nil {
			myhttp.WriteError(w, r, http.StatusBadRequest, xerrors.Errorf("invalid JSON format: %w", err))
			return
		}
		if output.DiffURL == "" {
			myhttp.WriteError(w, r, http.StatusBadRequest, xerrors.New("diffURL is required"))
			return
		}

		// Zero counts must overwrite the previous run, so the patch does not go through the
		// omitempty tags of the status type.
		status := controllers.StatusFromOutput(&output, time.Now())
		patchData, err := json.Marshal(map[string]any{
			"status": map[string]any{
				"referenceUrl":         status.ReferenceURL,
				"comparedUrl":          status.ComparedURL,
				"diffUrl":              status.DiffURL,
				"dissimilarRegions":    status.DissimilarRegions,
				"averageDissimilarity": status.AverageDissimilarity,
				"diffAmount":           status.DiffAmount,
				"lastComparisonTime":   status.LastComparisonTime,
			},
		})
		if err != nil {
			myhttp.WriteError(w, r, http.StatusInternalServerError, xerrors.Errorf("failed to marshal patch data: %w", err))
			return
		}

		u, err := dynamicClient.Resource(gvr).Namespace(r.PathValue("namespace")).Patch(
			r.Context(),
			r.PathValue("name"),
			types.MergePatchType,
			patchData,
			metav1.PatchOptions{},
			"status",
		)
		if err != nil {
			if apierrors.IsNotFound(err) {
				http.NotFound(w, r)
				return
			}
			myhttp.WriteError(w, r, http.StatusInternalServerError, xerrors.Errorf("failed to patch status: %w", err))
			return
		}
		myhttp.WriteJSON(w, r, http.StatusOK, u.Object)
	}
}
