// Package s3 stores catalog blobs in Amazon S3.
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("catalogs/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//	if err != nil {
//	    return err
//	}
//	err = cat.Save(ctx, store, "main.cat")
//
// Reads use ranged GETs; Create streams through the SDK's multipart
// uploader; Put attaches a CRC32C checksum unless disabled in UploadConfig.
package s3
