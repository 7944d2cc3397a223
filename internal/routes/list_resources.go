package routes

import (
	"net/http"
	"time"

	v1 "regiondiff/api/v1"
	"regiondiff/internal/myhttp"

	"golang.org/x/xerrors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic"
)

type ComparisonSummary struct {
	Name                 string     `json:"name"`
	URL                  string     `json:"url"`
	CompareWith          string     `json:"compareWith,omitempty"`
	Schedule             string     `json:"schedule,omitempty"`
	ReferenceBrowser     string     `json:"referenceBrowser,omitempty"`
	ComparedBrowser      string     `json:"comparedBrowser,omitempty"`
	DissimilarRegions    int        `json:"dissimilarRegions"`
	AverageDissimilarity float64    `json:"averageDissimilarity"`
	LastComparisonTime   *time.Time `json:"lastComparisonTime,omitempty"`
}

func summarize(c *v1.Comparison) ComparisonSummary {
	s := ComparisonSummary{
		Name:                 c.Name,
		URL:                  c.Spec.URL,
		CompareWith:          c.Spec.CompareWith,
		Schedule:             c.Spec.Schedule,
		ReferenceBrowser:     c.Spec.ReferenceBrowser,
		ComparedBrowser:      c.Spec.ComparedBrowser,
		DissimilarRegions:    c.Status.DissimilarRegions,
		AverageDissimilarity: c.Status.AverageDissimilarity,
	}
	if c.Status.LastComparisonTime != nil {
		t := c.Status.LastComparisonTime.Time
		s.LastComparisonTime = &t
	}
	return s
}

func ListResources(dynamicClient dynamic.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gvr, err := resource(r)
		if err != nil {
			myhttp.WriteError(w, r, http.StatusBadRequest, err)
			return
		}

		list, err := dynamicClient.Resource(gvr).Namespace(r.PathValue("namespace")).List(r.Context(), metav1.ListOptions{})
		if err != nil {
			myhttp.WriteError(w, r, http.StatusInternalServerError, xerrors.Errorf("failed to list resources: %w", err))
			return
		}

		summaries := make([]ComparisonSummary, 0, len(list.Items))
		for _, u := range list.Items {
			var comparison v1.Comparison
			if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, &comparison); err != nil {
				myhttp.WriteError(w, r, http.StatusInternalServerError, xerrors.Errorf("failed to convert comparison: %w", err))
				return
			}
			summaries = append(summaries, summarize(&comparison))
		}
		myhttp.WriteJSON(w, r, http.StatusOK, summaries)
	}
}

func Read(dynamicClient dynamic.Interface) http.HandlerFunc {
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
		myhttp.WriteJSON(w, r, http.StatusOK, u.Object)
	}
}
