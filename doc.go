// Package s3conn provides a small storage session over Amazon S3.
//
// A Client holds resolved credentials and a region and exposes the handful of
// operations most data jobs need: checking and creating buckets, uploading text,
// files and tables, fetching objects back as bytes or tables, and listing the
// keys under a prefix.
//
// Every operation returns a typed result or an error wrapping one of the
// sentinels in the errors package, so callers branch with errors.Is rather than
// reading log output. Listings follow continuation tokens and are exposed as
// lazy, restartable iterators.
//
// Tables are exchanged as CSV. On upload the CSV is streamed; if that attempt
// fails it is sent once more as a buffered PutObject. On fetch every column is
// read as text.
//
// Example usage:
//
//	client, err := s3conn.New(ctx,
//	    s3conn.WithRegion("eu-west-1"),
//	    s3conn.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    return err
//	}
//
//	t, _ := table.New([]string{"id", "name"}, []string{"1", "ada"})
//	if _, err := client.Upload(ctx, "reports", "daily/", "users.csv", t); err != nil {
//	    return err
//	}
//
//	for key, err := range client.ListKeys(ctx, "reports", "daily/") {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(key)
//	}
package s3conn
