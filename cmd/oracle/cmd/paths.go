package cmd

import "path/filepath"

// dataLayout resolves the persisted state layout under repoPath, per spec
// §6: ".oracle/index.db", ".oracle/bm25.<ext>", ".oracle/vectors.<ext>".
type dataLayout struct {
	DBPath      string
	LexicalPath string
	VectorPath  string
}

func resolveDataLayout(repoPath, dbOverride string) dataLayout {
	dataDir := filepath.Join(repoPath, ".oracle")
	dbPath := dbOverride
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "index.db")
	}
	return dataLayout{
		DBPath:      dbPath,
		LexicalPath: filepath.Join(dataDir, "bm25.bleve"),
		VectorPath:  filepath.Join(dataDir, "vectors.hnsw"),
	}
}

func loggerLevel() string {
	if verbose {
		return "debug"
	}
	return "info"
}
