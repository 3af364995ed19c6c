package config

type WorkerKeyStruct struct {
	// PersistSubmissionsQueue holds finalized submissions awaiting the SQL archive.
	PersistSubmissionsQueue string
	// PersistSubmissionsProcessing holds the batch the archive worker is writing.
	PersistSubmissionsProcessing string
}

var WorkerKey = &WorkerKeyStruct{
	PersistSubmissionsQueue:      "persist_submissions_queue",
	PersistSubmissionsProcessing: "persist_submissions_processing",
}
