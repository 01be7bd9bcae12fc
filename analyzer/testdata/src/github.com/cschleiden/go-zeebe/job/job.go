package job

type Job struct {
	Key int64
}
