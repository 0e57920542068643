package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/shaiso/Seqflow/internal/scheduler"
)

// Метки заданий Kubernetes.
const (
	LabelApp    = "app.kubernetes.io/managed-by"
	LabelTaskID = "seqflow.io/task-id"
	labelJob    = "job-name"
	appName     = "seqflow"

	defaultNamespace = "default"
	maxNameLength    = 63
	containerName    = "task"
)

// KubeConfig — конфигурация KubeBackend.
type KubeConfig struct {
	// Client — клиент Kubernetes. Если nil, создаётся из Kubeconfig.
	Client kubernetes.Interface

	// Kubeconfig — путь к kubeconfig. Пусто — конфигурация внутри кластера.
	Kubeconfig string

	// Namespace — namespace заданий (default: "default").
	Namespace string

	// Image — образ с бинарником seqflow.
	Image string

	// ServiceAccount — service account пода (опционально).
	ServiceAccount string

	// VolumeClaim — PVC с каталогами task, монтируется в MountPath.
	VolumeClaim string
	MountPath   string

	Logger *slog.Logger
}

// KubeBackend отправляет task как batch/v1 Job.
//
// Идентификатор задания — имя Job. Job создаётся с backoffLimit 0:
// повторов нет, неуспешный под завершает задание.
type KubeBackend struct {
	client         kubernetes.Interface
	namespace      string
	image          string
	serviceAccount string
	volumeClaim    string
	mountPath      string
	logger         *slog.Logger
}

// NewKubeBackend создаёт KubeBackend.
func NewKubeBackend(cfg KubeConfig) (*KubeBackend, error) {
	if cfg.Image == "" {
		return nil, ErrNoImage
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := cfg.Client
	if client == nil {
		restConfig, err := clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("load kubeconfig: %w", err)
		}
		clientset, err := kubernetes.NewForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("create kubernetes client: %w", err)
		}
		client = clientset
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	return &KubeBackend{
		client:         client,
		namespace:      namespace,
		image:          cfg.Image,
		serviceAccount: cfg.ServiceAccount,
		volumeClaim:    cfg.VolumeClaim,
		mountPath:      cfg.MountPath,
		logger:         logger,
	}, nil
}

// SubmitJob создаёт Job.
func (b *KubeBackend) SubmitJob(ctx context.Context, req scheduler.JobRequest) (scheduler.JobHandle, error) {
	if len(req.Command) == 0 {
		return "", ErrEmptyCommand
	}

	job := b.buildJob(req)
	created, err := b.client.BatchV1().Jobs(b.namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("create job %s: %w", job.Name, err)
	}

	b.logger.Debug("kubernetes job created", "job", created.Name, "namespace", b.namespace)
	return scheduler.JobHandle(created.Name), nil
}

// StatusJob возвращает статус Job по его условиям.
//
// Для неуспешного Job код завершения берётся из завершённого контейнера
// пода; если под уже удалён, код равен 1.
func (b *KubeBackend) StatusJob(ctx context.Context, handle scheduler.JobHandle) (scheduler.JobStatus, error) {
	name := string(handle)
	job, err := b.client.BatchV1().Jobs(b.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return scheduler.JobStatus{State: scheduler.JobUnknown}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
		}
		return scheduler.JobStatus{}, fmt.Errorf("get job %s: %w", name, err)
	}

	for _, cond := range job.Status.Conditions {
		if cond.Status != corev1.ConditionTrue {
			continue
		}
		switch cond.Type {
		case batchv1.JobComplete:
			return scheduler.JobStatus{State: scheduler.JobComplete}, nil
		case batchv1.JobFailed:
			code, err := b.exitCode(ctx, name)
			if err != nil {
				return scheduler.JobStatus{}, err
			}
			return scheduler.JobStatus{
				State:    scheduler.JobComplete,
				ExitCode: code,
				Message:  cond.Reason + ": " + cond.Message,
			}, nil
		}
	}

	if job.Status.Active > 0 {
		return scheduler.JobStatus{State: scheduler.JobRunning}, nil
	}
	return scheduler.JobStatus{State: scheduler.JobWaiting}, nil
}

// StopJob удаляет Job вместе с подами.
func (b *KubeBackend) StopJob(ctx context.Context, handle scheduler.JobHandle) error {
	policy := metav1.DeletePropagationBackground
	err := b.client.BatchV1().Jobs(b.namespace).Delete(ctx, string(handle), metav1.DeleteOptions{
		PropagationPolicy: &policy,
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete job %s: %w", handle, err)
	}
	return nil
}

// exitCode ищет код завершения контейнера task в подах Job.
func (b *KubeBackend) exitCode(ctx context.Context, jobName string) (int, error) {
	pods, err := b.client.CoreV1().Pods(b.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labelJob + "=" + jobName,
	})
	if err != nil {
		return 0, fmt.Errorf("list pods of job %s: %w", jobName, err)
	}

	for _, pod := range pods.Items {
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.Name != containerName || cs.State.Terminated == nil {
				continue
			}
			if code := int(cs.State.Terminated.ExitCode); code != 0 {
				return code, nil
			}
		}
	}
	return 1, nil
}

func (b *KubeBackend) buildJob(req scheduler.JobRequest) *batchv1.Job {
	var backoffLimit int32
	name := KubeJobName(req.Name)
	labels := map[string]string{
		LabelApp:    appName,
		LabelTaskID: strconv.Itoa(req.TaskID),
	}

	resources := corev1.ResourceList{
		corev1.ResourceMemory: resource.MustParse(strconv.Itoa(req.MemoryMB) + "Mi"),
		corev1.ResourceCPU:    *resource.NewQuantity(int64(max(req.Processors, 1)), resource.DecimalSI),
	}

	container := corev1.Container{
		Name:       containerName,
		Image:      b.image,
		Command:    req.Command,
		WorkingDir: req.TaskDir,
		Resources: corev1.ResourceRequirements{
			Requests: resources,
			Limits:   resources,
		},
	}

	podSpec := corev1.PodSpec{
		RestartPolicy:      corev1.RestartPolicyNever,
		ServiceAccountName: b.serviceAccount,
		Containers:         []corev1.Container{container},
	}

	if b.volumeClaim != "" {
		podSpec.Volumes = []corev1.Volume{{
			Name: "data",
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: b.volumeClaim},
			},
		}}
		podSpec.Containers[0].VolumeMounts = []corev1.VolumeMount{{Name: "data", MountPath: b.mountPath}}
	}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: b.namespace,
			Labels:    labels,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       podSpec,
			},
		},
	}
}

// KubeJobName приводит имя задания к имени объекта Kubernetes
// (DNS-1123: строчные буквы, цифры и '-', не длиннее 63 символов).
func KubeJobName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}

	out := sb.String()
	if len(out) > maxNameLength {
		out = out[len(out)-maxNameLength:]
	}
	return strings.Trim(out, "-")
}
