// Package awsdemo exercises the emulated AWS data services behind the
// gateway: a connectivity check plus small S3 and DynamoDB round trips
// that demo users can trigger once authenticated.
package awsdemo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	slogctx "github.com/veqryn/slog-context"

	"github.com/opsdemo/cognito-gateway/internal/serviceerr"
)

// S3API is the subset of the S3 client the demo calls.
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// DynamoDBAPI is the subset of the DynamoDB client the demo calls. It
// embeds the waiter's client interface so table creation can be awaited.
type DynamoDBAPI interface {
	dynamodb.DescribeTableAPIClient

	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type Service struct {
	s3Client     S3API
	dynamoClient DynamoDBAPI
	endpoint     string

	now func() time.Time
}

func NewService(awsConfig aws.Config, endpoint string, usePathStyle bool) *Service {
	return &Service{
		s3Client: s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			o.UsePathStyle = usePathStyle
		}),
		dynamoClient: dynamodb.NewFromConfig(awsConfig),
		endpoint:     endpoint,
		now:          time.Now,
	}
}

// NewServiceWithClients wires explicit clients, mainly for tests.
func NewServiceWithClients(s3Client S3API, dynamoClient DynamoDBAPI, endpoint string) *Service {
	return &Service{
		s3Client:     s3Client,
		dynamoClient: dynamoClient,
		endpoint:     endpoint,
		now:          time.Now,
	}
}

type ServiceStatus struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type StatusReport struct {
	Status    string                   `json:"aws_status"`
	Endpoint  string                   `json:"endpoint"`
	Services  map[string]ServiceStatus `json:"services"`
	Timestamp time.Time                `json:"timestamp"`
}

// Status checks the emulator with one cheap list call per service and
// reports how many buckets and tables it currently holds.
func (s *Service) Status(ctx context.Context) (StatusReport, error) {
	buckets, err := s.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return StatusReport{}, providerErr("listing buckets", err)
	}

	tables, err := s.dynamoClient.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return StatusReport{}, providerErr("listing tables", err)
	}

	return StatusReport{
		Status:   "connected",
		Endpoint: s.endpoint,
		Services: map[string]ServiceStatus{
			"s3":       {Status: "available", Count: len(buckets.Buckets)},
			"dynamodb": {Status: "available", Count: len(tables.TableNames)},
		},
		Timestamp: s.now().UTC(),
	}, nil
}

type TestObject struct {
	Message   string    `json:"message"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

type ObjectSummary struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

type S3Report struct {
	Action     string          `json:"action"`
	Bucket     string          `json:"bucket"`
	Objects    []ObjectSummary `json:"objects"`
	TestObject TestObject      `json:"test_object"`
}

// RunS3Demo creates a throwaway bucket, writes one JSON object tagged
// with the calling user and lists the bucket back.
func (s *Service) RunS3Demo(ctx context.Context, user string) (S3Report, error) {
	now := s.now().UTC()
	bucketName := fmt.Sprintf("demo-bucket-%d", now.UnixMilli())

	if _, err := s.s3Client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}); err != nil {
		return S3Report{}, providerErr("creating bucket", err)
	}
	slogctx.Info(ctx, "Created demo bucket", "bucket", bucketName)

	testObject := TestObject{
		Message:   "test object written through the authenticated gateway",
		User:      user,
		Timestamp: now,
	}
	body, err := json.MarshalIndent(testObject, "", "  ")
	if err != nil {
		return S3Report{}, fmt.Errorf("encoding test object: %w", err)
	}

	if _, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String("test-object.json"),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return S3Report{}, providerErr("putting test object", err)
	}

	listed, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		return S3Report{}, providerErr("listing objects", err)
	}

	objects := make([]ObjectSummary, 0, len(listed.Contents))
	for _, object := range listed.Contents {
		objects = append(objects, ObjectSummary{
			Key:          aws.ToString(object.Key),
			Size:         aws.ToInt64(object.Size),
			LastModified: aws.ToTime(object.LastModified),
		})
	}

	return S3Report{
		Action:     "s3 demo completed",
		Bucket:     bucketName,
		Objects:    objects,
		TestObject: testObject,
	}, nil
}

type DemoItem struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Message   string    `json:"message" dynamodbav:"message"`
	User      string    `json:"user" dynamodbav:"user"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

type DynamoReport struct {
	Action        string   `json:"action"`
	Table         string   `json:"table"`
	InsertedItem  DemoItem `json:"inserted_item"`
	RetrievedItem DemoItem `json:"retrieved_item"`
}

// RunDynamoDemo creates a throwaway on-demand table, writes one item
// tagged with the calling user and reads it back.
func (s *Service) RunDynamoDemo(ctx context.Context, user string) (DynamoReport, error) {
	now := s.now().UTC()
	tableName := fmt.Sprintf("demo-table-%d", now.UnixMilli())

	if _, err := s.dynamoClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		KeySchema: []dynamodbtypes.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: dynamodbtypes.KeyTypeHash},
		},
		AttributeDefinitions: []dynamodbtypes.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
		},
		BillingMode: dynamodbtypes.BillingModePayPerRequest,
	}); err != nil {
		return DynamoReport{}, providerErr("creating table", err)
	}
	slogctx.Info(ctx, "Created demo table", "table", tableName)

	waiter := dynamodb.NewTableExistsWaiter(s.dynamoClient)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, 10*time.Second); err != nil {
		return DynamoReport{}, providerErr("waiting for table", err)
	}

	item := DemoItem{
		ID:        fmt.Sprintf("test-id-%d", now.UnixMilli()),
		Message:   "test item written through the authenticated gateway",
		User:      user,
		Timestamp: now,
	}
	attributes, err := attributevalue.MarshalMap(item)
	if err != nil {
		return DynamoReport{}, fmt.Errorf("marshaling item: %w", err)
	}

	if _, err := s.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      attributes,
	}); err != nil {
		return DynamoReport{}, providerErr("putting item", err)
	}

	read, err := s.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key: map[string]dynamodbtypes.AttributeValue{
			"id": &dynamodbtypes.AttributeValueMemberS{Value: item.ID},
		},
	})
	if err != nil {
		return DynamoReport{}, providerErr("getting item", err)
	}

	var retrieved DemoItem
	if err := attributevalue.UnmarshalMap(read.Item, &retrieved); err != nil {
		return DynamoReport{}, fmt.Errorf("unmarshaling item: %w", err)
	}

	return DynamoReport{
		Action:        "dynamodb demo completed",
		Table:         tableName,
		InsertedItem:  item,
		RetrievedItem: retrieved,
	}, nil
}

func providerErr(operation string, err error) error {
	return serviceerr.ErrProviderUnavailable.
		WithDescription(fmt.Sprintf("%s: %v", operation, err))
}
