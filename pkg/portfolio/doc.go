// Package portfolio provides the record types, error taxonomy and repository
// contract shared by the portfolio service.
//
// # Records
//
// Every resource is a plain struct carrying an optional store-assigned
// identifier (the document's _id) and its own fields:
//
//   - Detail: name, description and image of the portfolio owner
//   - TechStack: a named technology and its category
//   - Project: a project with its company, repository, url and stack
//   - Experience: a role held at a company between two years
//   - User: an account identified by email with a hashed password
//
// Each record has a matching partial-update type whose fields are all
// pointers. Only non-nil fields participate in an update.
//
// # Errors
//
// Every fallible operation returns either a value or an *Error. The error
// kind decides the HTTP status exactly once, at the boundary:
//
//	err := repo.Delete(ctx, id)
//	if err != nil {
//		c.JSON(portfolio.StatusCode(err), portfolio.Message(err))
//		return
//	}
//
// # Repository
//
// Repository is generic over the record type. Implementations translate
// records to store documents, parse identifiers and normalize store failures
// into the three repository error kinds: validation, not found and internal.
package portfolio
