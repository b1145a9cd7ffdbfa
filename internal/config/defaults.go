package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "rag_documents"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.AnswerLanguage == "" {
		cfg.LLM.AnswerLanguage = "English"
	}
	if cfg.Rerank.Model == "" {
		cfg.Rerank.Model = "mxbai-rerank-large-v1"
	}
	if cfg.Rerank.TimeoutSeconds == 0 {
		cfg.Rerank.TimeoutSeconds = 30
	}
	if cfg.Split.Strategy == "" {
		cfg.Split.Strategy = "semantic"
	}
	if cfg.Split.ChunkSize == 0 {
		cfg.Split.ChunkSize = 512
	}
	if cfg.Split.ChunkOverlap == 0 {
		cfg.Split.ChunkOverlap = 50
	}
	if cfg.Split.BufferSize == 0 {
		cfg.Split.BufferSize = 1
	}
	if cfg.Split.BreakpointPercentile == 0 {
		cfg.Split.BreakpointPercentile = 95
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 5
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 10
	}
	if cfg.Storage.CatalogPath == "" {
		cfg.Storage.CatalogPath = "/usr/local/var/kotae/data/catalog.db"
	}
	if cfg.Storage.QueryLogDir == "" {
		cfg.Storage.QueryLogDir = "/usr/local/var/kotae/logs"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".txt", ".md"}
	}
}
