package config

type WorkerKeyStruct struct {
	DispatchReportsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	DispatchReportsQueue: "dispatch_reports_queue",
}
