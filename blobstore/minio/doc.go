// Package minio stores catalog blobs in MinIO and other S3-compatible
// object stores (Ceph, Garage, SeaweedFS).
//
//	store, err := minio.Dial(ctx, minio.Config{
//	    Endpoint:     "localhost:9000",
//	    AccessKey:    "minioadmin",
//	    SecretKey:    "minioadmin",
//	    Bucket:       "catalogs",
//	    Prefix:       "prod/",
//	    CreateBucket: true,
//	})
//	if err != nil {
//	    return err
//	}
//	err = cat.Save(ctx, store, "main.cat")
package minio
