package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewReconcileJob(t *testing.T) {
	t.Parallel()

	profileID := uuid.New()
	job := NewReconcileJob(profileID)

	if job.ID == uuid.Nil {
		t.Error("expected a generated job id")
	}
	if job.Type != JobTypeReconcileProfile {
		t.Errorf("expected type %s, got %s", JobTypeReconcileProfile, job.Type)
	}
	if job.ProfileID != profileID {
		t.Errorf("expected profile id %s, got %s", profileID, job.ProfileID)
	}
	if job.MaxRetries != 3 {
		t.Errorf("expected 3 max retries, got %d", job.MaxRetries)
	}
	if job.RetryCount != 0 {
		t.Errorf("expected 0 retries on a fresh job, got %d", job.RetryCount)
	}
}

func TestJobShouldProcess(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		notBefore *time.Time
		notAfter  *time.Time
		want      bool
	}{
		{"no bounds", nil, nil, true},
		{"not_before in the past", &past, nil, true},
		{"not_before in the future", &future, nil, false},
		{"not_after in the future", nil, &future, true},
		{"not_after in the past", nil, &past, false},
		{"inside window", &past, &future, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := NewReconcileJob(uuid.New())
			job.NotBefore = tt.notBefore
			job.NotAfter = tt.notAfter

			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobIsExpired(t *testing.T) {
	t.Parallel()

	job := NewReconcileJob(uuid.New())
	if job.IsExpired() {
		t.Error("job without not_after must never expire")
	}

	past := time.Now().Add(-time.Minute)
	job.NotAfter = &past
	if !job.IsExpired() {
		t.Error("expected job past not_after to be expired")
	}

	future := time.Now().Add(time.Minute)
	job.NotAfter = &future
	if job.IsExpired() {
		t.Error("expected job before not_after to be live")
	}
}

func TestJobRetry(t *testing.T) {
	t.Parallel()

	job := NewReconcileJob(uuid.New())
	for i := 0; i < job.MaxRetries; i++ {
		if !job.CanRetry() {
			t.Fatalf("expected retry %d to be allowed", i)
		}
		job.IncrementRetry()
	}
	if job.CanRetry() {
		t.Error("expected retries exhausted")
	}
	if job.RetryCount != job.MaxRetries {
		t.Errorf("expected retry count %d, got %d", job.MaxRetries, job.RetryCount)
	}
}
