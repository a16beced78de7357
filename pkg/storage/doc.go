// Package storage issues presigned S3 URLs for direct browser uploads and
// previews, and validates upload batches before any URL is signed.
//
//	st, err := storage.New(ctx, cfg)
//	urls, err := st.GenerateUploadURLs(ctx, []storage.UploadRequest{{Owner: userID, ID: "a1", MIMEType: "image/png"}})
//
// Signing happens locally; no request reaches the bucket until the client
// uses the URL.
package storage
