package doclake

import "encoding/json"

// symbolRow is the Parquet row schema for api_symbols.
type symbolRow struct {
	ID         string    `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	FilePath   string    `parquet:"name=file_path, type=BYTE_ARRAY, convertedtype=UTF8"`
	Kind       string    `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name       string    `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LineStart  int32     `parquet:"name=line_start, type=INT32"`
	LineEnd    int32     `parquet:"name=line_end, type=INT32"`
	Signature  string    `parquet:"name=signature, type=BYTE_ARRAY, convertedtype=UTF8"`
	DocComment string    `parquet:"name=doc_comment, type=BYTE_ARRAY, convertedtype=UTF8"`
	Embedding  []float32 `parquet:"name=embedding, type=LIST, valuetype=FLOAT"`
	Metadata   string    `parquet:"name=metadata, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// chunkRow is the Parquet row schema for doc_chunks.
type chunkRow struct {
	ID          string    `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	SourceFile  string    `parquet:"name=source_file, type=BYTE_ARRAY, convertedtype=UTF8"`
	Title       string    `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	SectionPath string    `parquet:"name=section_path, type=BYTE_ARRAY, convertedtype=UTF8"`
	Content     string    `parquet:"name=content, type=BYTE_ARRAY, convertedtype=UTF8"`
	ChunkIndex  int32     `parquet:"name=chunk_index, type=INT32"`
	Format      string    `parquet:"name=format, type=BYTE_ARRAY, convertedtype=UTF8"`
	ByteOffset  int64     `parquet:"name=byte_offset, type=INT64"`
	CharLen     int32     `parquet:"name=char_len, type=INT32"`
	Embedding   []float32 `parquet:"name=embedding, type=LIST, valuetype=FLOAT"`
}

// SymbolRecord is the application-level view of one api_symbols row.
type SymbolRecord struct {
	ID         string
	FilePath   string
	Kind       string
	Name       string
	LineStart  int
	LineEnd    int
	Signature  string
	DocComment *string
	Embedding  []float32
	Metadata   json.RawMessage
}

// ChunkRecord is the application-level view of one doc_chunks row, produced
// by internal/chunker and enriched with an embedding before insertion.
type ChunkRecord struct {
	ID          string
	SourceFile  string
	Title       *string
	SectionPath []string
	Content     string
	ChunkIndex  int
	Format      string
	ByteOffset  int
	CharLen     int
	Embedding   []float32
}

func (r SymbolRecord) toRow() symbolRow {
	doc := ""
	if r.DocComment != nil {
		doc = *r.DocComment
	}
	meta := "{}"
	if len(r.Metadata) > 0 {
		meta = string(r.Metadata)
	}
	return symbolRow{
		ID: r.ID, FilePath: r.FilePath, Kind: r.Kind, Name: r.Name,
		LineStart: int32(r.LineStart), LineEnd: int32(r.LineEnd),
		Signature: r.Signature, DocComment: doc, Embedding: r.Embedding, Metadata: meta,
	}
}

func fromSymbolRow(row symbolRow) SymbolRecord {
	rec := SymbolRecord{
		ID: row.ID, FilePath: row.FilePath, Kind: row.Kind, Name: row.Name,
		LineStart: int(row.LineStart), LineEnd: int(row.LineEnd),
		Signature: row.Signature, Embedding: row.Embedding,
	}
	if row.DocComment != "" {
		rec.DocComment = &row.DocComment
	}
	if row.Metadata != "" {
		rec.Metadata = json.RawMessage(row.Metadata)
	}
	return rec
}

func (r ChunkRecord) toRow() chunkRow {
	title := ""
	if r.Title != nil {
		title = *r.Title
	}
	sp, _ := json.Marshal(r.SectionPath)
	return chunkRow{
		ID: r.ID, SourceFile: r.SourceFile, Title: title, SectionPath: string(sp),
		Content: r.Content, ChunkIndex: int32(r.ChunkIndex), Format: r.Format,
		ByteOffset: int64(r.ByteOffset), CharLen: int32(r.CharLen), Embedding: r.Embedding,
	}
}

func fromChunkRow(row chunkRow) ChunkRecord {
	rec := ChunkRecord{
		ID: row.ID, SourceFile: row.SourceFile, Content: row.Content,
		ChunkIndex: int(row.ChunkIndex), Format: row.Format,
		ByteOffset: int(row.ByteOffset), CharLen: int(row.CharLen), Embedding: row.Embedding,
	}
	if row.Title != "" {
		rec.Title = &row.Title
	}
	var sp []string
	if row.SectionPath != "" {
		_ = json.Unmarshal([]byte(row.SectionPath), &sp)
	}
	rec.SectionPath = sp
	return rec
}

// SymbolHit and ChunkHit are vector-search results: the record plus its
// cosine distance from the query embedding (lower is closer).
type SymbolHit struct {
	Symbol   SymbolRecord
	Distance float64
}

type ChunkHit struct {
	Chunk    ChunkRecord
	Distance float64
}
