// Package metacpan provides a typed client for the MetaCPAN API.
//
// # Basic Usage
//
//	client, err := metacpan.NewClient(metacpan.ClientOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// An identifier fetches one record.
//	res, err := client.Author(ctx, "XSAWYERX")
//	fmt.Println(res.Record.Author().Name)
//
//	// A search spec returns a lazily paginated result set.
//	res, err = client.Author(ctx, searchspec.Either(
//	    searchspec.Match("name", "Dave *"),
//	    searchspec.Match("name", "David *"),
//	))
//	for rec, err := range res.Set.All(ctx) {
//	    ...
//	}
//
// # Error Handling
//
// Errors are reported through sentinels usable with [errors.Is]:
// [ErrInvalidSpecShape], [ErrUnknownKind], [ErrNotImplemented],
// [ErrNotFound], [ErrTransport] and [ErrDecode]. The client never retries
// and never swallows an error.
package metacpan
