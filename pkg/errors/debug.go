package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// entity keys lifted from typed error details into the dump so a rejected
// checkout or payment can be traced back to its order in the logs.
var dumpIDKeys = []string{"order_id", "order_number", "attempt_id", "product_id", "variant_id"}

// ErrorDump flattens an error chain for structured logging.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
	Step       string `json:"step,omitempty"`

	Chain []string          `json:"chain,omitempty"`
	IDs   map[string]string `json:"ids,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		meta := MetadataFor(te.Code())
		d.Code = te.Code()
		d.HTTPStatus = meta.HTTPStatus
		d.Retryable = meta.Retryable
		if details, ok := te.Details().(map[string]any); ok {
			if step, ok := details["step"].(string); ok {
				d.Step = step
			}
			for _, key := range dumpIDKeys {
				if v, ok := details[key]; ok && v != nil {
					if d.IDs == nil {
						d.IDs = map[string]string{}
					}
					d.IDs[key] = fmt.Sprint(v)
				}
			}
		}
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}
	return d
}

// Fields returns the non-empty parts of the dump as logger fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	if d.Code != "" {
		fields["error_code"] = d.Code
		fields["retryable"] = d.Retryable
	}
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	if d.Step != "" {
		fields["step"] = d.Step
	}
	for key, id := range d.IDs {
		fields[key] = id
	}
	for key, v := range map[string]string{
		"pg_code":       d.PGCode,
		"pg_constraint": d.PGConstraint,
		"pg_table":      d.PGTable,
		"pg_column":     d.PGColumn,
		"pg_detail":     d.PGDetail,
		"pg_message":    d.PGMessage,
	} {
		if v != "" {
			fields[key] = v
		}
	}
	return fields
}
