// Package storage adapts S3 compatible object stores to the small multipart
// surface the transfer package drives.
//
// Two clients are provided: S3Client on aws-sdk-go-v2 and MinioClient on
// minio-go. Both expose the same four calls (create, upload part, complete,
// abort) so a resumable session never depends on a particular SDK.
package storage
