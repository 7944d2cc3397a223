package routes

import (
	"net/http"
	"slices"

	"regiondiff/internal/myhttp"

	"golang.org/x/xerrors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

func ListNamespaces(clientset kubernetes.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespaces, err := clientset.CoreV1().Namespaces().List(r.Context(), metav1.ListOptions{})
		if err != nil {
			myhttp.WriteError(w, r, http.StatusInternalServerError, xerrors.Errorf("failed to list namespaces: %w", err))
			return
		}

		names := make([]string, 0, len(namespaces.Items))
		for _, namespace := range namespaces.Items {
			names = append(names, namespace.Name)
		}
		slices.Sort(names)
		myhttp.WriteJSON(w, r, http.StatusOK, names)
	}
}
