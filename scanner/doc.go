// Package scanner binds raw SQL result rows to typed Go values and back.
//
// A statement's rows are first materialised into a Result (column names plus
// raw driver values). Typed values are then produced with the generic
// cardinality helpers, which look up the target type's model.Descriptor under
// the Result's naming strategy.
//
// # Basic Usage
//
//	type User struct {
//	    Name   string
//	    Age    opt.Option[int]
//	    Active bool
//	}
//
//	res, err := scanner.ReadRows(rows)
//	if err != nil {
//	    return err
//	}
//	res.Naming = naming.SnakeCase
//
//	user, err := scanner.Single[User](res)   // exactly one row
//	maybe, err := scanner.First[User](res)   // opt.Option[User]
//	users, err := scanner.List[User](res)    // every row, driver order
//
// Single reports dberr.NoResultError for an empty result and
// dberr.MultipleResultsError for more than one row.
//
// # Binding Rules
//
// Each field is looked up by its resolved column name. A missing column
// leaves an opt.Option field absent and fails a required field with
// dberr.MissingColumnError. A NULL value makes an Option absent. Values are
// never coerced across incompatible kinds: integers widen into wider integer
// and floating point fields and feed booleans, everything else must match
// (dberr.TypeMismatchError).
//
// Scalar targets bind the first column:
//
//	count, err := scanner.Single[int64](res)
//
// # Parameters
//
// Unbind turns a model into positional parameters in descriptor order, with
// absent options as NULL:
//
//	d, _ := model.DescriptorOf[User](naming.SnakeCase)
//	params, err := scanner.Unbind(d, user)
//
// # Custom Scanners
//
// The Scanner interface gives you full control over the scan destinations.
// When *T implements it, Single, First and List use ScanTargets instead of
// the descriptor. ScanMap covers the common case:
//
//	func (f *Foo) ScanTargets(columns []string) []any {
//	    return scanner.ScanMap(columns, map[string]any{
//	        "id":   &f.ID,
//	        "name": &f.Name,
//	    })
//	}
//
// # Query Options
//
// QueryOption hooks provide light-weight tuneables without introducing a
// builder-style API. Use WithExpectedSize when you know the approximate row
// count to reduce slice reallocations.
package scanner
