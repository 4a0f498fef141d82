package models

import "time"

// BriefTypeCSV is the only dataset content type the service stores.
const BriefTypeCSV = "CSV"

// Dataset is the full metadata record for one uploaded CSV file.
type Dataset struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	CreationDate      time.Time `json:"creation_date"`
	Author            string    `json:"author"`
	AuthorLogin       string    `json:"author_login"`
	RowCount          int64     `json:"row_count"`
	ColumnCount       int64     `json:"column_count"`
	SizeKB            float64   `json:"size_kb"`
	Path              string    `json:"path"`
	LastVersionNumber int       `json:"last_version_number"`
	LastModifiedDate  time.Time `json:"last_modified_date"`
	LastModifiedBy    string    `json:"last_modified_by"`
}

// DatasetBrief is the lightweight listing projection of a Dataset.
type DatasetBrief struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	SizeKB      float64 `json:"size_kb"`
}

// DatasetFormValues carries the upload/edit form fields. Data is the
// raw CSV text; empty Data on edit means "keep the stored file".
type DatasetFormValues struct {
	Name        string
	Description string
	Data        string
}

// Preview is a bounded head-of-file projection for display.
type Preview struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int64      `json:"total_rows"`
	TotalCols int64      `json:"total_cols"`
}
