package routes

import (
	"encoding/base64"
	"net/http"

	v1 "regiondiff/api/v1"
	"regiondiff/internal/myhttp"
	"regiondiff/internal/storage"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic"
)

type ArtifactsResponse struct {
	Reference            string  `json:"reference,omitempty"`
	Compared             string  `json:"compared,omitempty"`
	Diff                 string  `json:"diff,omitempty"`
	DissimilarRegions    int     `json:"dissimilarRegions"`
	AverageDissimilarity float64 `json:"averageDissimilarity"`
	DiffAmount           float64 `json:"diffAmount"`
}

// ListArtifacts returns the stored images of a comparison base64 encoded. Artifacts that cannot
// be read are left out.
func ListArtifacts(dynamicClient dynamic.Interface, storageClient storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gvr, err := resource(r)
		if err != nil {
			myhttp.WriteError(w, r, http.StatusBadRequest, err)
			return
		}

		u, err := dynamicClient.Resource(gvr).Namespace(r.PathValue("namespace")).Get(r.Context(), r.PathValue("name"), metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				http.NotFound(w, r)
				return
			}
			myhttp.WriteError(w, r, http.StatusInternalServerError, xerrors.Errorf("failed to get resource: %w", err))
			return
		}

		var comparison v1.Comparison
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, &comparison); err != nil {
			myhttp.WriteError(w, r, http.StatusInternalServerError, xerrors.Errorf("failed to convert comparison: %w", err))
			return
		}

		response := ArtifactsResponse{
			DissimilarRegions:    comparison.Status.DissimilarRegions,
			AverageDissimilarity: comparison.Status.AverageDissimilarity,
			DiffAmount:           comparison.Status.DiffAmount,
		}

		logger := myhttp.Logger(r.Context())
		var eg errgroup.Group
		for _, artifact := range []struct {
			url string
			out *string
		}{
			{comparison.Status.ReferenceURL, &response.Reference},
			{comparison.Status.ComparedURL, &response.Compared},
			{comparison.Status.DiffURL, &response.Diff},
		} {
			url, out := artifact.url, artifact.out
			if url == "" {
				continue
			}
			eg.Go(func() error {
				data, err := storageClient.Get(r.Context(), url)
				if err != nil {
					logger.Warn("failed to read artifact", "url", url, "error", err)
					return nil
				}
				*out = base64.StdEncoding.EncodeToString(data)
				return nil
			})
		}
		_ = eg.Wait()

		myhttp.WriteJSON(w, r, http.StatusOK, response)
	}
}
