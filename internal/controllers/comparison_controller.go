package controllers

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	v1 "regiondiff/api/v1"
	"regiondiff/internal/capture"
	"regiondiff/internal/phash"
	"regiondiff/internal/pipeline"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	"golang.org/x/xerrors"
	batchV1 "k8s.io/api/batch/v1"
	coreV1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type ComparisonReconciler struct {
	client.Client
	Log      logr.Logger
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Runner   *pipeline.Runner

	Distributed             bool
	DistributedCallbackHost string
	DistributedWorkerImage  string
	Now                     func() time.Time
}

func (r *ComparisonReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	comparison := &v1.Comparison{}
	if err := r.Get(ctx, req.NamespacedName, comparison); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	request, err := RequestFor(comparison)
	if err != nil {
		r.Recorder.Eventf(comparison, coreV1.EventTypeWarning, "InvalidSpec", "%v", err)
		return ctrl.Result{}, nil
	}

	if comparison.Spec.Schedule != "" {
		return r.reconcileScheduled(ctx, comparison, request)
	}

	if comparison.Status.ObservedGeneration >= comparison.Generation {
		return ctrl.Result{}, nil
	}

	comparison.Status.ObservedGeneration = comparison.Generation
	if err := r.Status().Update(ctx, comparison); err != nil {
		return ctrl.Result{}, err
	}

	if r.Distributed {
		if err := r.createJob(ctx, comparison); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{}, nil
	}

	if err := r.processComparison(ctx, comparison, request); err != nil {
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, nil
}

func (r *ComparisonReconciler) reconcileScheduled(ctx context.Context, comparison *v1.Comparison, request pipeline.Request) (ctrl.Result, error) {
	if r.Distributed {
		if err := r.createOrUpdateCronJob(ctx, comparison); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{}, nil
	}

	schedule, err := cronParser.Parse(comparison.Spec.Schedule)
	if err != nil {
		r.Recorder.Eventf(comparison, coreV1.EventTypeWarning, "InvalidSchedule", "%v", err)
		return ctrl.Result{}, nil
	}

	now := r.now()
	if wait := UntilNextRun(schedule, comparison.Status.LastComparisonTime, now); wait > 0 {
		return ctrl.Result{RequeueAfter: wait}, nil
	}

	comparison.Status.ObservedGeneration = comparison.Generation
	if err := r.processComparison(ctx, comparison, request); err != nil {
		return ctrl.Result{}, err
	}

	return ctrl.Result{RequeueAfter: schedule.Next(now).Sub(now)}, nil
}

// UntilNextRun returns how long to wait before the next scheduled comparison. A comparison
// that never ran is due if the schedule fired within the last minute.
func UntilNextRun(schedule cron.Schedule, last *metaV1.Time, now time.Time) time.Duration {
	nextRun := schedule.Next(now.Add(-1 * time.Minute))
	if last != nil {
		nextRun = schedule.Next(last.Time)
	}
	if now.Before(nextRun) {
		return nextRun.Sub(now)
	}
	return 0
}

func (r *ComparisonReconciler) processComparison(ctx context.Context, comparison *v1.Comparison, request pipeline.Request) error {
	output, err := r.Runner.Run(ctx, request)
	if err != nil {
		r.Recorder.Eventf(comparison, coreV1.EventTypeWarning, "ComparisonFailed", "Comparison failed: %v", err)
		return xerrors.Errorf("failed to run comparison: %w", err)
	}

	observedGeneration := comparison.Status.ObservedGeneration
	comparison.Status = StatusFromOutput(output, r.now())
	comparison.Status.ObservedGeneration = observedGeneration
	if err := r.Status().Update(ctx, comparison); err != nil {
		return xerrors.Errorf("failed to update comparison status: %w", err)
	}

	r.Recorder.Eventf(comparison, coreV1.EventTypeNormal, "ComparisonCompleted", "Comparison completed successfully: %q (%d dissimilar regions, average dissimilarity: %.2f%%)", comparison.Name, output.Report.Dissimilar, output.Report.AverageDissimilarity)
	return nil
}

// StatusFromOutput converts a finished comparison into the status fields it updates. It leaves
// ObservedGeneration zero.
func StatusFromOutput(output *pipeline.Output, at time.Time) v1.ComparisonStatus {
	return v1.ComparisonStatus{
		ReferenceURL:         output.ReferenceURL,
		ComparedURL:          output.ComparedURL,
		DiffURL:              output.DiffURL,
		DissimilarRegions:    output.Report.Dissimilar,
		AverageDissimilarity: output.Report.AverageDissimilarity,
		DiffAmount:           output.DiffAmount,
		LastComparisonTime:   &metaV1.Time{Time: at},
	}
}

// RequestFor translates a comparison spec into a pipeline request. Zero values keep the
// pipeline defaults. Threshold means the split threshold in recursive mode and the distance
// threshold in linear mode.
func RequestFor(comparison *v1.Comparison) (pipeline.Request, error) {
	spec := comparison.Spec
	request := pipeline.Request{
		ReferenceURL:     spec.URL,
		ComparedURL:      spec.CompareWith,
		ReferenceBrowser: capture.Chromium,
		ComparedBrowser:  capture.Firefox,
		ViewportWidth:    spec.ViewportWidth,
		ScrollbarWidth:   pipeline.DefaultScrollbarWidth,
		MaskSelectors:    spec.MaskSelectors,
		Headers:          spec.Headers,
		Options:          pipeline.DefaultOptions(),
	}

	var err error
	if spec.ReferenceBrowser != "" {
		if request.ReferenceBrowser, err = capture.ParseBrowser(spec.ReferenceBrowser); err != nil {
			return request, err
		}
	}
	if spec.ComparedBrowser != "" {
		if request.ComparedBrowser, err = capture.ParseBrowser(spec.ComparedBrowser); err != nil {
			return request, err
		}
	}
	if spec.Mode != "" {
		if request.Options.Mode, err = pipeline.ParseMode(spec.Mode); err != nil {
			return request, err
		}
	}
	if spec.Algorithm != "" {
		if request.Options.Algorithm, err = phash.ParseAlgorithm(spec.Algorithm); err != nil {
			return request, err
		}
	}
	if spec.Threshold > 0 {
		if request.Options.Mode == pipeline.ModeLinear {
			request.Options.DistanceThreshold = spec.Threshold
		} else {
			request.Options.Threshold = spec.Threshold
		}
	}
	if spec.TileEdge > 0 {
		request.Options.TileEdge = spec.TileEdge
	}

	if err := capture.ValidateURL(request.ReferenceURL); err != nil {
		return request, err
	}
	if request.ComparedURL != "" {
		if err := capture.ValidateURL(request.ComparedURL); err != nil {
			return request, err
		}
	}
	if err := request.Options.Validate(); err != nil {
		return request, err
	}
	return request, nil
}

// WorkerArgs builds the bin/worker command line that runs comparison and PATCHes the result to
// callbackURL.
func WorkerArgs(comparison *v1.Comparison, callbackURL string) []string {
	spec := comparison.Spec
	args := []string{spec.URL}
	if spec.CompareWith != "" {
		args = append(args, spec.CompareWith)
	}
	args = append(args, "--callback-url", callbackURL)

	for _, flag := range [][2]string{
		{"--reference-browser", spec.ReferenceBrowser},
		{"--compared-browser", spec.ComparedBrowser},
		{"--mode", spec.Mode},
		{"--algorithm", spec.Algorithm},
	} {
		if flag[1] != "" {
			args = append(args, flag[0], flag[1])
		}
	}
	if spec.ViewportWidth > 0 {
		args = append(args, "--viewport-width", strconv.Itoa(spec.ViewportWidth))
	}
	if spec.Threshold > 0 {
		if spec.Mode == string(pipeline.ModeLinear) {
			args = append(args, "--linear-threshold", strconv.Itoa(spec.Threshold))
		} else {
			args = append(args, "--threshold", strconv.Itoa(spec.Threshold))
		}
	}
	if spec.TileEdge > 0 {
		args = append(args, "--tile-edge", strconv.Itoa(spec.TileEdge))
	}
	if len(spec.MaskSelectors) > 0 {
		args = append(args, "--mask-selectors", strings.Join(spec.MaskSelectors, ","))
	}
	for _, key := range slices.Sorted(maps.Keys(spec.Headers)) {
		args = append(args, "-H", fmt.Sprintf("%s: %s", key, spec.Headers[key]))
	}
	return args
}

func (r *ComparisonReconciler) callbackURL(comparison *v1.Comparison) string {
	return fmt.Sprintf("http://%s/api/%s/%s/%s/%s/%s/artifacts", r.DistributedCallbackHost, comparison.Namespace, v1.GroupVersion.Group, v1.GroupVersion.Version, "comparison", comparison.Name)
}

func (r *ComparisonReconciler) podTemplate(comparison *v1.Comparison) coreV1.PodTemplateSpec {
	var envVars []coreV1.EnvVar
	for _, name := range []string{
		"S3_BUCKET",
		"S3_PREFIX",
		"S3_ENDPOINT_URL",
		"AWS_REGION",
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
		"CHROME_DEVTOOLS_PROTOCOL_URL",
	} {
		envVars = append(envVars, coreV1.EnvVar{
			Name:  name,
			Value: os.Getenv(name),
		})
	}
	envVars = append(envVars, coreV1.EnvVar{
		Name:  "STORAGE_BACKEND",
		Value: "s3",
	})

	return coreV1.PodTemplateSpec{
		Spec: coreV1.PodSpec{
			RestartPolicy: coreV1.RestartPolicyNever,
			Containers: []coreV1.Container{
				{
					Name:  "worker",
					Image: r.DistributedWorkerImage,
					Args:  WorkerArgs(comparison, r.callbackURL(comparison)),
					Env:   envVars,
				},
			},
		},
	}
}

func (r *ComparisonReconciler) createJob(ctx context.Context, comparison *v1.Comparison) error {
	jobName := fmt.Sprintf("comparison-%s-%d", comparison.Name, comparison.Generation)

	job := &batchV1.Job{
		ObjectMeta: metaV1.ObjectMeta{
			Name:      jobName,
			Namespace: comparison.Namespace,
		},
		Spec: batchV1.JobSpec{
			Template: r.podTemplate(comparison),
		},
	}

	if err := controllerutil.SetControllerReference(comparison, job, r.Scheme); err != nil {
		return xerrors.Errorf("failed to set controller reference: %w", err)
	}

	if err := r.Create(ctx, job); err != nil {
		if apierrors.IsAlreadyExists(err) {
			r.Log.Info("Job already exists", "job", jobName)
			return nil
		}
		return xerrors.Errorf("failed to create job: %w", err)
	}

	r.Recorder.Eventf(comparison, coreV1.EventTypeNormal, "JobCreated", "Created job %s for comparison", jobName)
	return nil
}

func (r *ComparisonReconciler) createOrUpdateCronJob(ctx context.Context, comparison *v1.Comparison) error {
	cronJobName := fmt.Sprintf("comparison-%s", comparison.Name)

	cronJob := &batchV1.CronJob{
		ObjectMeta: metaV1.ObjectMeta{
			Name:      cronJobName,
			Namespace: comparison.Namespace,
		},
		Spec: batchV1.CronJobSpec{
			Schedule:          comparison.Spec.Schedule,
			ConcurrencyPolicy: batchV1.ForbidConcurrent,
			JobTemplate: batchV1.JobTemplateSpec{
				Spec: batchV1.JobSpec{
					Template: r.podTemplate(comparison),
				},
			},
		},
	}

	if err := controllerutil.SetControllerReference(comparison, cronJob, r.Scheme); err != nil {
		return xerrors.Errorf("failed to set controller reference: %w", err)
	}

	existingCronJob := &batchV1.CronJob{}
	err := r.Get(ctx, client.ObjectKey{Name: cronJobName, Namespace: comparison.Namespace}, existingCronJob)
	if err != nil {
		if apierrors.IsNotFound(err) {
			if err := r.Create(ctx, cronJob); err != nil {
				return xerrors.Errorf("failed to create cronjob: %w", err)
			}
			r.Recorder.Eventf(comparison, coreV1.EventTypeNormal, "CronJobCreated", "Created CronJob %s", cronJobName)
			return nil
		}
		return xerrors.Errorf("failed to get existing cronjob: %w", err)
	}

	existingCronJob.Spec = cronJob.Spec
	if err := r.Update(ctx, existingCronJob); err != nil {
		return xerrors.Errorf("failed to update cronjob: %w", err)
	}
	r.Recorder.Eventf(comparison, coreV1.EventTypeNormal, "CronJobUpdated", "Updated CronJob %s", cronJobName)
	return nil
}

func (r *ComparisonReconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *ComparisonReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1.Comparison{}).
		Owns(&batchV1.Job{}).
		Owns(&batchV1.CronJob{}).
		WithEventFilter(predicate.GenerationChangedPredicate{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: 1}).
		Complete(r)
}
