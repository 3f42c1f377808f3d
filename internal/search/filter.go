package search

import "strings"

// buildEmailFilter compiles opts into a parameterized SQL WHERE clause
// fragment (without the leading "WHERE") plus its bound args, for emails.
//
// Deliberately departs from original_source's search/mod.rs build_filter(),
// which string-interpolates raw values into the clause — a SQL-injection
// risk once ported to a real database/sql driver. Every predicate value is
// bound as a driver arg here instead, preserving the exact boolean
// structure named in spec.md §4.6.1.
func buildEmailFilter(opts SearchOptions) (string, []any) {
	var clauses []string
	var args []any

	if len(opts.Accounts) > 0 {
		placeholders := make([]string, len(opts.Accounts))
		for i, a := range opts.Accounts {
			placeholders[i] = "?"
			args = append(args, a)
		}
		clauses = append(clauses, "account_id IN ("+strings.Join(placeholders, ",")+")")
	}
	if opts.Folder != "" {
		clauses = append(clauses, "folder = ?")
		args = append(args, opts.Folder)
	}
	if opts.From != "" {
		clauses = append(clauses, "(from_email LIKE ? OR from_name LIKE ?)")
		like := "%" + opts.From + "%"
		args = append(args, like, like)
	}
	if opts.To != "" {
		clauses = append(clauses, "to_addrs LIKE ?")
		args = append(args, "%"+opts.To+"%")
	}
	if opts.DateFrom != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, *opts.DateFrom)
	}
	if opts.DateTo != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, *opts.DateTo)
	}
	if opts.HasAttachment != nil {
		if *opts.HasAttachment {
			clauses = append(clauses, "(attachments IS NOT NULL AND attachments != '[]')")
		} else {
			clauses = append(clauses, "(attachments IS NULL OR attachments = '[]')")
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return strings.Join(clauses, " AND "), args
}

// buildEventFilter compiles opts into a parameterized WHERE clause
// fragment for events. Calendar search shares the account/date predicates
// but has no folder/from/to/attachment columns.
func buildEventFilter(opts SearchOptions) (string, []any) {
	var clauses []string
	var args []any

	if len(opts.Accounts) > 0 {
		placeholders := make([]string, len(opts.Accounts))
		for i, a := range opts.Accounts {
			placeholders[i] = "?"
			args = append(args, a)
		}
		clauses = append(clauses, "account_id IN ("+strings.Join(placeholders, ",")+")")
	}
	if opts.DateFrom != nil {
		clauses = append(clauses, "start_at >= ?")
		args = append(args, *opts.DateFrom)
	}
	if opts.DateTo != nil {
		clauses = append(clauses, "start_at <= ?")
		args = append(args, *opts.DateTo)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return strings.Join(clauses, " AND "), args
}
