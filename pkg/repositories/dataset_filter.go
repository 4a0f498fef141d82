package repositories

import (
	"fmt"
	"strings"

	"github.com/moevm/nosql1h25-mldata/pkg/models"
)

// sortColumns maps sort fields to listing query columns.
var sortColumns = map[models.SortField]string{
	models.SortSize:         "d.size_kb",
	models.SortRowCount:     "d.row_count",
	models.SortColumnCount:  "d.column_count",
	models.SortCreationDate: "d.creation_date",
	models.SortModifiedDate: "d.last_modified_date",
}

// buildBriefQuery translates FilterValues into the brief listing SQL
// plus its positional arguments. All range bounds are inclusive. The
// view/download filters compare against the latest activity day,
// since the stored daily counts are cumulative snapshots.
func buildBriefQuery(fv *models.FilterValues) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT d.id, d.name, d.description, d.size_kb\nFROM dataset_info d")

	needActivity := fv != nil && (fv.Views.IsSet() || fv.Downloads.IsSet())
	if needActivity {
		sb.WriteString(`
LEFT JOIN LATERAL (
	SELECT a.views, a.downloads
	FROM dataset_activity a
	WHERE a.dataset_id = d.id
	ORDER BY a.day DESC
	LIMIT 1
) act ON true`)
	}

	var conds []string
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if fv != nil {
		if fv.Name != "" {
			add("d.name ILIKE $%d", "%"+escapeLike(fv.Name)+"%")
		}

		addIntRange(&conds, &args, "d.size_kb", fv.Size)
		addIntRange(&conds, &args, "d.row_count", fv.RowCount)
		addIntRange(&conds, &args, "d.column_count", fv.ColumnCount)
		addIntRange(&conds, &args, "COALESCE(act.views, 0)", fv.Views)
		addIntRange(&conds, &args, "COALESCE(act.downloads, 0)", fv.Downloads)

		if fv.CreationDate.From != nil {
			add("d.creation_date >= $%d", *fv.CreationDate.From)
		}
		if fv.CreationDate.To != nil {
			add("d.creation_date <= $%d", *fv.CreationDate.To)
		}
		if fv.ModifiedDate.From != nil {
			add("d.last_modified_date >= $%d", *fv.ModifiedDate.From)
		}
		if fv.ModifiedDate.To != nil {
			add("d.last_modified_date <= $%d", *fv.ModifiedDate.To)
		}
	}

	if len(conds) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	sb.WriteString("\nORDER BY ")
	if fv != nil && fv.Sort != nil {
		col, ok := sortColumns[fv.Sort.Field]
		if !ok {
			col = "d.creation_date"
		}
		sb.WriteString(col)
		if fv.Sort.Order == models.SortDesc {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	} else {
		sb.WriteString("d.creation_date DESC")
	}

	return sb.String(), args
}

func addIntRange(conds *[]string, args *[]any, column string, r models.IntRange) {
	if r.From != nil {
		*args = append(*args, *r.From)
		*conds = append(*conds, fmt.Sprintf("%s >= $%d", column, len(*args)))
	}
	if r.To != nil {
		*args = append(*args, *r.To)
		*conds = append(*conds, fmt.Sprintf("%s <= $%d", column, len(*args)))
	}
}

// escapeLike escapes LIKE wildcards in user input so the name filter
// is a literal substring match.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
