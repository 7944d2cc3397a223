package v1

import (
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ComparisonSpec defines the desired state of Comparison
type ComparisonSpec struct {
	// URL is the page to capture
	URL string `json:"url"`
	// CompareWith is a second page compared against URL. Empty compares URL across browsers.
	// +optional
	CompareWith string `json:"compareWith,omitempty"`
	// Schedule in Cron format, see https://en.wikipedia.org/wiki/Cron. Empty runs once per generation.
	// +optional
	Schedule string `json:"schedule,omitempty"`
	// ViewportWidth is the browser width in pixels
	// +kubebuilder:default=1280
	// +kubebuilder:validation:Minimum=1
	ViewportWidth int `json:"viewportWidth,omitempty"`
	// +kubebuilder:validation:Enum=chromium;firefox;webkit
	// +kubebuilder:default="chromium"
	ReferenceBrowser string `json:"referenceBrowser,omitempty"`
	// +kubebuilder:validation:Enum=chromium;firefox;webkit
	// +kubebuilder:default="firefox"
	ComparedBrowser string `json:"comparedBrowser,omitempty"`
	// Mode selects the recursive or the linear engine
	// +kubebuilder:validation:Enum=recursive;linear
	// +kubebuilder:default="recursive"
	Mode string `json:"mode,omitempty"`
	// +kubebuilder:validation:Enum=ahash;dhash;phash;whash
	// +kubebuilder:default="ahash"
	Algorithm string `json:"algorithm,omitempty"`
	// Threshold is the smallest side the recursive engine splits, or the hash distance at which
	// the linear engine marks a tile
	// +kubebuilder:validation:Minimum=0
	// +optional
	Threshold int `json:"threshold,omitempty"`
	// TileEdge is the tile edge in pixels for the linear engine
	// +kubebuilder:validation:Minimum=8
	// +optional
	TileEdge int `json:"tileEdge,omitempty"`
	// MaskSelectors are CSS selectors hidden before capture
	// +optional
	MaskSelectors []string `json:"maskSelectors,omitempty"`
	// Headers are added to every request the browsers make
	// +optional
	Headers map[string]string `json:"headers,omitempty"`
}

// ComparisonStatus defines the observed state of Comparison
type ComparisonStatus struct {
	// ReferenceURL is the storage URL where the reference screenshot is stored
	ReferenceURL string `json:"referenceUrl,omitempty"`
	// ComparedURL is the storage URL where the compared screenshot is stored
	ComparedURL string `json:"comparedUrl,omitempty"`
	// DiffURL is the storage URL where the annotated diff image is stored
	DiffURL string `json:"diffUrl,omitempty"`
	// DissimilarRegions is the number of marked regions
	DissimilarRegions int `json:"dissimilarRegions,omitempty"`
	// AverageDissimilarity is the mean hash distance in percent
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:validation:Maximum=100
	AverageDissimilarity float64 `json:"averageDissimilarity,omitempty"`
	// DiffAmount is AverageDissimilarity as a fraction (0.0 to 1.0)
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:validation:Maximum=1
	DiffAmount float64 `json:"diffAmount,omitempty"`
	// LastComparisonTime is the time when the last comparison finished
	LastComparisonTime *metaV1.Time `json:"lastComparisonTime,omitempty"`
	// ObservedGeneration is the generation the last comparison ran for
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="URL",type=string,JSONPath=`.spec.url`
// +kubebuilder:printcolumn:name="Regions",type=integer,JSONPath=`.status.dissimilarRegions`
// +kubebuilder:printcolumn:name="Last",type=date,JSONPath=`.status.lastComparisonTime`

// Comparison is the schema for the comparisons API
type Comparison struct {
	metaV1.TypeMeta   `json:",inline"`
	metaV1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ComparisonSpec   `json:"spec,omitempty"`
	Status ComparisonStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ComparisonList contains a list of Comparison
type ComparisonList struct {
	metaV1.TypeMeta `json:",inline"`
	metaV1.ListMeta `json:"metadata,omitempty"`
	Items           []Comparison `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Comparison{}, &ComparisonList{})
}
