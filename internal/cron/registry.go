package cron

import "context"

// Report is what a job hands back to the scheduler after a run.
type Report struct {
	Rows int64
}

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) (Report, error)
}

// Registry holds jobs in run order.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends job. Nil jobs are ignored so optional jobs can be passed through.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
