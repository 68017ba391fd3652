// Package s3 implements the storage.ObjectClient capability on top of the
// AWS SDK v2 S3 client. It registers itself under the factory name "s3".
package s3

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/s3vfs/s3vfs/internal/config"
	"github.com/s3vfs/s3vfs/internal/storage"
	vfserrors "github.com/s3vfs/s3vfs/pkg/errors"
	"github.com/s3vfs/s3vfs/pkg/types"
)

// FactoryName is the registry name of this client implementation.
const FactoryName = "s3"

const (
	defaultRegion   = "us-east-1"
	defaultProtocol = "https"
	defaultMaxRetry = 3
	defaultMaxConns = 50
	bucketCacheSize = 64
)

func init() {
	storage.Register(FactoryName, NewClient)
}

// Client wraps the AWS S3 client. Bucket existence and bucket ACLs are
// memoized in small LRU caches since directory creation and access checks
// probe them repeatedly for the same bucket.
type Client struct {
	api    *awss3.Client
	logger *slog.Logger

	buckets    *lru.Cache[string, struct{}]
	bucketACLs *lru.Cache[string, bucketACL]
}

type bucketACL struct {
	grants []types.Grant
	owner  types.Owner
}

// NewClient builds a client from the resolved properties. An empty endpoint
// means the AWS default endpoint for the configured region.
func NewClient(ctx context.Context, endpoint string, props config.Properties) (storage.ObjectClient, error) {
	region := props[config.KeyRegion]
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(props.Int(config.KeyMaxErrorRetry, defaultMaxRetry)),
	}

	if ak, ok := props[config.KeyAccessKey]; ok {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, props[config.KeySecretKey], props[config.KeySessionToken])))
	}
	if ua := props[config.KeyUserAgent]; ua != "" {
		opts = append(opts, awsconfig.WithAppID(ua))
	}

	httpClient := &http.Client{
		Timeout: props.Duration(config.KeySocketTimeout, 0),
		Transport: &http.Transport{
			MaxIdleConnsPerHost: props.Int(config.KeyMaxConnections, defaultMaxConns),
			MaxConnsPerHost:     props.Int(config.KeyMaxConnections, defaultMaxConns),
		},
	}
	opts = append(opts, awsconfig.WithHTTPClient(httpClient))

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, vfserrors.Wrap(vfserrors.CodeConfiguration, "LoadDefaultConfig", endpoint, err)
	}

	api := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if endpoint != "" {
			protocol := props[config.KeyProtocol]
			if protocol == "" {
				protocol = defaultProtocol
			}
			o.BaseEndpoint = aws.String(protocol + "://" + endpoint)
		}
		if props.Bool(config.KeyPathStyleAccess, false) {
			o.UsePathStyle = true
		}
	})

	buckets, err := lru.New[string, struct{}](bucketCacheSize)
	if err != nil {
		return nil, vfserrors.Wrap(vfserrors.CodeConfiguration, "NewClient", endpoint, err)
	}
	bucketACLs, err := lru.New[string, bucketACL](bucketCacheSize)
	if err != nil {
		return nil, vfserrors.Wrap(vfserrors.CodeConfiguration, "NewClient", endpoint, err)
	}

	return &Client{
		api:        api,
		logger:     slog.Default().With("component", "s3-client", "endpoint", endpoint),
		buckets:    buckets,
		bucketACLs: bucketACLs,
	}, nil
}

// HeadBucket checks bucket existence. A positive answer is cached; absence
// is always re-probed so a just-created bucket becomes visible.
func (c *Client) HeadBucket(ctx context.Context, bucket string) error {
	if _, ok := c.buckets.Get(bucket); ok {
		return nil
	}
	_, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		return translate(err, "HeadBucket", bucket)
	}
	c.buckets.Add(bucket, struct{}{})
	return nil
}

func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	_, err := c.api.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		return translate(err, "CreateBucket", bucket)
	}
	c.buckets.Add(bucket, struct{}{})
	c.logger.Debug("bucket created", "bucket", bucket)
	return nil
}

func (c *Client) ListBuckets(ctx context.Context) ([]types.BucketInfo, error) {
	out, err := c.api.ListBuckets(ctx, &awss3.ListBucketsInput{})
	if err != nil {
		return nil, translate(err, "ListBuckets", "")
	}
	buckets := make([]types.BucketInfo, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, types.BucketInfo{
			Name:         aws.ToString(b.Name),
			CreationDate: aws.ToTime(b.CreationDate),
		})
	}
	return buckets, nil
}

func (c *Client) HeadObject(ctx context.Context, bucket, key string) (*types.ObjectInfo, error) {
	out, err := c.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate(err, "HeadObject", bucket+"/"+key)
	}
	info := &types.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         aws.ToString(out.ETag),
		ContentType:  aws.ToString(out.ContentType),
		Metadata:     make(map[string]string, len(out.Metadata)),
	}
	for k, v := range out.Metadata {
		info.Metadata[k] = v
	}
	return info, nil
}

func (c *Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate(err, "GetObject", bucket+"/"+key)
	}
	return out.Body, nil
}

func (c *Client) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	in := &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := c.api.PutObject(ctx, in); err != nil {
		return translate(err, "PutObject", bucket+"/"+key)
	}
	return nil
}

func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return translate(err, "DeleteObject", bucket+"/"+key)
	}
	return nil
}

// CopyObject performs a server-side single-object copy. Objects above the
// single-request copy limit need a multipart copy, which is the client
// user's responsibility, not this layer's.
func (c *Client) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	source := url.PathEscape(srcBucket + "/" + srcKey)
	_, err := c.api.CopyObject(ctx, &awss3.CopyObjectInput{
		CopySource: aws.String(source),
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return translate(err, "CopyObject", srcBucket+"/"+srcKey)
	}
	return nil
}

func (c *Client) ListObjects(ctx context.Context, in storage.ListInput) (*storage.ListOutput, error) {
	maxKeys := in.MaxKeys
	if maxKeys <= 0 {
		maxKeys = storage.MaxListPageSize
	}
	req := &awss3.ListObjectsV2Input{
		Bucket:  aws.String(in.Bucket),
		Prefix:  aws.String(in.Prefix),
		MaxKeys: aws.Int32(maxKeys),
	}
	if in.Delimiter != "" {
		req.Delimiter = aws.String(in.Delimiter)
	}
	if in.ContinuationToken != "" {
		req.ContinuationToken = aws.String(in.ContinuationToken)
	}

	out, err := c.api.ListObjectsV2(ctx, req)
	if err != nil {
		return nil, translate(err, "ListObjects", in.Bucket+"/"+in.Prefix)
	}

	result := &storage.ListOutput{
		Objects:               make([]types.ObjectInfo, 0, len(out.Contents)),
		CommonPrefixes:        make([]string, 0, len(out.CommonPrefixes)),
		NextContinuationToken: aws.ToString(out.NextContinuationToken),
		IsTruncated:           aws.ToBool(out.IsTruncated),
	}
	for _, obj := range out.Contents {
		result.Objects = append(result.Objects, types.ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
		})
	}
	for _, cp := range out.CommonPrefixes {
		result.CommonPrefixes = append(result.CommonPrefixes, aws.ToString(cp.Prefix))
	}
	return result, nil
}

func (c *Client) GetObjectACL(ctx context.Context, bucket, key string) ([]types.Grant, types.Owner, error) {
	out, err := c.api.GetObjectAcl(ctx, &awss3.GetObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, types.Owner{}, translate(err, "GetObjectACL", bucket+"/"+key)
	}
	return convertGrants(out.Grants), convertOwner(out.Owner), nil
}

func (c *Client) GetBucketACL(ctx context.Context, bucket string) ([]types.Grant, types.Owner, error) {
	if entry, ok := c.bucketACLs.Get(bucket); ok {
		return entry.grants, entry.owner, nil
	}
	out, err := c.api.GetBucketAcl(ctx, &awss3.GetBucketAclInput{Bucket: aws.String(bucket)})
	if err != nil {
		return nil, types.Owner{}, translate(err, "GetBucketACL", bucket)
	}
	entry := bucketACL{grants: convertGrants(out.Grants), owner: convertOwner(out.Owner)}
	c.bucketACLs.Add(bucket, entry)
	return entry.grants, entry.owner, nil
}

// Close releases client resources. The AWS SDK client holds no connections
// beyond its HTTP transport's idle pool, so this only drops the caches.
func (c *Client) Close() error {
	c.buckets.Purge()
	c.bucketACLs.Purge()
	return nil
}

func convertOwner(o *s3types.Owner) types.Owner {
	if o == nil {
		return types.Owner{}
	}
	return types.Owner{
		ID:          aws.ToString(o.ID),
		DisplayName: aws.ToString(o.DisplayName),
	}
}

func convertGrants(grants []s3types.Grant) []types.Grant {
	out := make([]types.Grant, 0, len(grants))
	for _, g := range grants {
		if g.Grantee == nil {
			continue
		}
		grant := types.Grant{
			Grantee: types.Grantee{
				ID:          aws.ToString(g.Grantee.ID),
				DisplayName: aws.ToString(g.Grantee.DisplayName),
				URI:         aws.ToString(g.Grantee.URI),
			},
			Permission: types.Permission(g.Permission),
		}
		switch g.Grantee.Type {
		case s3types.TypeGroup:
			grant.Grantee.Type = types.GranteeGroup
		default:
			grant.Grantee.Type = types.GranteeCanonicalUser
		}
		out = append(out, grant)
	}
	return out
}

// translate maps AWS failures onto the s3vfs taxonomy: any not-found shape
// becomes CodeNotFound, bucket collisions CodeAlreadyExists, everything else
// CodeTransport with the original cause attached.
func translate(err error, op, path string) error {
	var (
		noKey    *s3types.NoSuchKey
		noBucket *s3types.NoSuchBucket
		notFound *s3types.NotFound
	)
	if errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound) {
		return vfserrors.Wrap(vfserrors.CodeNotFound, op, path, err)
	}
	var owned *s3types.BucketAlreadyOwnedByYou
	var taken *s3types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &taken) {
		return vfserrors.Wrap(vfserrors.CodeAlreadyExists, op, path, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return vfserrors.Wrap(vfserrors.CodeNotFound, op, path, err)
		case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
			return vfserrors.Wrap(vfserrors.CodeAlreadyExists, op, path, err)
		}
	}
	return vfserrors.Wrap(vfserrors.CodeTransport, op, path, err)
}
