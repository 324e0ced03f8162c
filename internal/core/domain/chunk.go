package domain

// Chunk is the atomic retrieval unit: one delimiter-separated segment of the
// source textbook. IDs are assigned 0-based in document order at ingestion
// and stay stable until a collection reset.
type Chunk struct {
	ID   int    `json:"doc_id"`
	Text string `json:"text"`
}

// IngestReport is the outcome of one ingestion run. Ingestion never raises:
// failures come back as Success=false with the cause in Message.
type IngestReport struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Documents  int    `json:"documents_count"`
	Collection string `json:"collection_name"`
}
