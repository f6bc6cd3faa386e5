package types

// ProcessInfo is a best-effort snapshot of one live process. Attributes that
// could not be read are nil; scheduler policy and IO class use the same
// vocabulary as Rule.Sched and Rule.IOClass.
type ProcessInfo struct {
	PID         int     `json:"pid"`
	Name        string  `json:"name"`
	Nice        *int    `json:"nice,omitempty"`
	OOMScoreAdj *int    `json:"oom_score_adj,omitempty"`
	RTPrio      *int    `json:"rtprio,omitempty"`
	LatencyNice *int    `json:"latency_nice,omitempty"`
	SchedPolicy *string `json:"sched_policy,omitempty"`
	IOClass     *string `json:"ioclass,omitempty"`
	Cgroup      *string `json:"cgroup,omitempty"`
}
