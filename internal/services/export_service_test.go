package services

import (
	"encoding/json"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(input.Key)] = body
	f.types[aws.StringValue(input.Key)] = aws.StringValue(input.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (suite *ServiceTestSuite) TestExportOrderWithoutStorage() {
	storage, err := NewStorageService(config.AWSConfig{S3Bucket: "docs", ExportPrefix: "orders"})
	suite.Require().NoError(err)
	suite.False(storage.Enabled())

	order, _ := suite.placedOrder("EXP-1")
	exports := NewExportService(suite.orders, storage, "EUR")

	result, err := exports.ExportOrder(suite.ctx, order.ID)
	suite.Require().NoError(err)
	suite.Nil(result.Archive)
	suite.Equal(order.OrderNumber, result.Document.OrderNumber)
	suite.Len(result.Document.Lines, 1)
	suite.Equal("33.90", result.Document.TotalTtc.StringFixed(2))
	suite.Equal("EUR", result.Document.Currency)

	_, err = exports.ExportOrder(suite.ctx, uuid.New())
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *ServiceTestSuite) TestExportOrderArchivesToS3() {
	client := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	storage := NewStorageServiceWithClient(client, config.AWSConfig{S3Bucket: "docs", Region: "eu-west-3", ExportPrefix: "orders"})
	exports := NewExportService(suite.orders, storage, "EUR")

	order, _ := suite.placedOrder("EXP-2")
	_, err := suite.orders.Transition(suite.ctx, order.ID, models.OrderStatusConfirmed, "")
	suite.Require().NoError(err)

	result, err := exports.ExportOrder(suite.ctx, order.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(result.Archive)

	key := "orders/" + order.CreatedAt.Format("2006/01") + "/" + order.OrderNumber + ".json"
	suite.Equal(key, result.Archive.Key)
	suite.Equal("https://docs.s3.eu-west-3.amazonaws.com/"+key, result.Archive.URL)
	suite.Equal("application/json", client.types[key])

	var doc OrderDocument
	suite.Require().NoError(json.Unmarshal(client.objects[key], &doc))
	suite.Equal(order.ID, doc.OrderID)
	suite.Require().Len(doc.History, 2)
	suite.Equal(models.OrderStatusPending, doc.History[0].Status)
	suite.Equal(models.OrderStatusConfirmed, doc.History[1].Status)
}
