// Package s3 implements blobstore.Store for Amazon S3.
//
// Whole-object chunk fetches go through the S3 transfer manager, which splits
// large objects into parallel ranged GETs. Listing uses the ListObjectsV2
// paginator, so chunk inventories over large datasets stay bounded in memory.
package s3
