package sched

import (
	"sync"

	"github.com/embb-go/taskrt/status"
)

// Job groups a set of Actions registered under one (domain, jobID) key
// so a caller can start a task "on job X" without naming a specific
// action, letting the runtime load-balance across whichever actions are
// currently least busy. Grounded on
// _examples/Guti2010-Proyecto-SO/internal/jobs.Manager's registry-by-key
// pattern, generalized from HTTP job records to Action membership lists.
type Job struct {
	handle JobHandle
	domain uint32
	id     uint32

	mu      sync.RWMutex
	actions []*Action
}

func newJob(h JobHandle, domain, id uint32) *Job {
	return &Job{handle: h, domain: domain, id: id}
}

// Handle returns the stable handle for this Job.
func (j *Job) Handle() JobHandle { return j.handle }

func (j *Job) addAction(a *Action) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.actions = append(j.actions, a)
	return nil
}

func (j *Job) removeAction(a *Action) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i, cand := range j.actions {
		if cand == a {
			j.actions = append(j.actions[:i], j.actions[i+1:]...)
			return
		}
	}
}

// pickAction selects the least-busy non-deleted action currently
// registered to this job (spec §5 "Job" load-balancing rule: route to
// the action with the smallest inflight num_tasks). Returns
// ErrJobInvalid if the job has no usable action.
func (j *Job) pickAction() (*Action, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var best *Action
	var bestCount int64
	for _, a := range j.actions {
		if a.deleted.Load() {
			continue
		}
		c := a.inflight()
		if best == nil || c < bestCount {
			best = a
			bestCount = c
		}
	}
	if best == nil {
		return nil, status.ErrJobInvalid
	}
	return best, nil
}
