package dbtools

// QueryResult is the result of the query tool.
type QueryResult struct {
	Query   string `json:"query"`
	Results []Row  `json:"results"`
	Count   int    `json:"count"`
}

// First returns the first row, or nil when the result is empty.
func (r *QueryResult) First() Row {
	if len(r.Results) == 0 {
		return nil
	}
	return r.Results[0]
}

// TableList is the result of the list_tables tool.
type TableList struct {
	DatabaseType string   `json:"database_type"`
	Tables       []string `json:"tables"`
	Count        int      `json:"count"`
}

// TableSchema is the result of the inspect_schema tool.
type TableSchema struct {
	Name        string           `json:"name"`
	Columns     []ColumnInfo     `json:"columns"`
	Indexes     []IndexInfo      `json:"indexes"`
	ForeignKeys []ForeignKeyInfo `json:"foreignKeys"`

	// Raw holds the decoded document as returned by the server.
	Raw map[string]interface{} `json:"raw,omitempty"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name          string      `json:"name"`
	Type          string      `json:"type"`
	Nullable      bool        `json:"nullable"`
	Default       interface{} `json:"default"`
	PrimaryKey    bool        `json:"primaryKey"`
	AutoIncrement bool        `json:"autoIncrement"`
	Unique        bool        `json:"unique"`
}

// IndexInfo describes an index.
type IndexInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// ForeignKeyInfo describes a foreign key.
type ForeignKeyInfo struct {
	Name             string `json:"name"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn"`
	OnDelete         string `json:"onDelete"`
	OnUpdate         string `json:"onUpdate"`
}

// ColumnNames returns the names of the columns in declaration order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	return names
}

// TableAnalysis is the result of the analyze_table tool.
type TableAnalysis struct {
	Table      string                 `json:"table"`
	TotalRows  int64                  `json:"total_rows"`
	SampleSize int                    `json:"sample_size"`
	Schema     interface{}            `json:"schema"`
	Statistics map[string]ColumnStats `json:"statistics"`
}

// ColumnStats holds the statistics computed for one column of a sample.
type ColumnStats struct {
	DataType     string        `json:"data_type"`
	NullCount    int64         `json:"null_count"`
	UniqueCount  int64         `json:"unique_count"`
	MinValue     interface{}   `json:"min_value,omitempty"`
	MaxValue     interface{}   `json:"max_value,omitempty"`
	SampleValues []interface{} `json:"sample_values,omitempty"`
}

// BatchQuery is one statement of a batch_query call.
type BatchQuery struct {
	SQL        string        `json:"sql"`
	Parameters []interface{} `json:"parameters,omitempty"`
	Label      string        `json:"label,omitempty"`
}

// BatchResult is the result of the batch_query tool.
type BatchResult struct {
	BatchSize    int                `json:"batch_size"`
	Executed     int                `json:"executed"`
	Results      []BatchQueryResult `json:"results"`
	FailFastMode bool               `json:"fail_fast_mode"`
}

// BatchQueryResult is the outcome of one statement of a batch.
type BatchQueryResult struct {
	Index     int    `json:"index"`
	Label     string `json:"label"`
	SQL       string `json:"sql"`
	Results   []Row  `json:"results"`
	Count     int    `json:"count"`
	Error     string `json:"error,omitempty"`
	Success   bool   `json:"success"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ByLabel returns the first statement result carrying label.
func (r *BatchResult) ByLabel(label string) (*BatchQueryResult, bool) {
	for i := range r.Results {
		if r.Results[i].Label == label {
			return &r.Results[i], true
		}
	}
	return nil, false
}

// HasRows reports whether the statement succeeded and returned at least one row.
func (r *BatchQueryResult) HasRows() bool {
	return r.Success && len(r.Results) > 0
}

// StreamResult is the result of the stream_query tool.
type StreamResult struct {
	Query      string  `json:"query"`
	TotalRows  int     `json:"total_rows"`
	BatchSize  int     `json:"batch_size"`
	BatchCount int     `json:"batch_count"`
	Batches    [][]Row `json:"batches"`
	Streaming  bool    `json:"streaming"`
}

// CountResult is the result of the count_records tool.
type CountResult struct {
	Table      string                 `json:"table"`
	Count      int64                  `json:"count"`
	Conditions map[string]interface{} `json:"conditions"`
}

// SampleResult is the result of the generate_sample tool.
type SampleResult struct {
	Table      string                 `json:"table"`
	SampleSize int                    `json:"sample_size"`
	Requested  int                    `json:"requested"`
	Random     bool                   `json:"random"`
	Conditions map[string]interface{} `json:"conditions"`
	Data       []Row                  `json:"data"`
}
