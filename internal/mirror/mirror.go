// Package mirror copies committed records to remote DynamoDB tables and pulls the
// authoritative catalog back.
//
// Pushes are fire-and-forget: each runs on its own goroutine with a timeout, and a
// failure is logged and dropped. Nothing is retried and nothing is reported to the
// caller, so local writes never wait on the network.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/models"
)

// DefaultTimeout bounds each remote call.
const DefaultTimeout = 10 * time.Second

// Remote is what the data layer needs from a mirror.
type Remote interface {
	PushProduct(p models.Product)
	PushOrder(o models.Order)
	PushCustomer(c models.Customer)
	PushMerchant(m models.Merchant)
	PullCatalog(ctx context.Context) ([]models.Product, error)
	Wait()
}

// RemoteTables names the DynamoDB table for each local table.
type RemoteTables struct {
	Products  string
	Orders    string
	Customers string
	Merchants string
}

// DefaultTables uses the local table names.
func DefaultTables() RemoteTables {
	return RemoteTables{
		Products:  models.TableProducts,
		Orders:    models.TableOrders,
		Customers: models.TableCustomers,
		Merchants: models.TableMerchants,
	}
}

// Mirror pushes records to DynamoDB.
type Mirror struct {
	client  DynamoDBAPI
	tables  RemoteTables
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger
	wg      sync.WaitGroup
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) Option {
	return func(m *Mirror) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithNowFunc overrides the clock used for updated_at and last_active.
func WithNowFunc(now func() time.Time) Option {
	return func(m *Mirror) {
		m.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Mirror) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates a mirror writing to the given tables.
func New(client DynamoDBAPI, tables RemoteTables, opts ...Option) *Mirror {
	m := &Mirror{
		client:  client,
		tables:  tables,
		timeout: DefaultTimeout,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("mirror")
	return m
}

// PushProduct upserts p into the remote products table.
func (m *Mirror) PushProduct(p models.Product) {
	m.push(m.tables.Products, p.ID, toRemoteProduct(p, m.now()))
}

// PushOrder upserts o into the remote orders table.
func (m *Mirror) PushOrder(o models.Order) {
	m.push(m.tables.Orders, o.ID, toRemoteOrder(o, m.now()))
}

// PushCustomer upserts c into the remote customers table.
func (m *Mirror) PushCustomer(c models.Customer) {
	m.push(m.tables.Customers, c.ID, toRemoteCustomer(c, m.now()))
}

// PushMerchant upserts mc into the remote merchants table.
func (m *Mirror) PushMerchant(mc models.Merchant) {
	m.push(m.tables.Merchants, mc.ID, toRemoteMerchant(mc, m.now()))
}

// Wait blocks until every push started so far has finished.
func (m *Mirror) Wait() {
	m.wg.Wait()
}

func (m *Mirror) push(table, id string, record any) {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		m.log.Error("marshal remote record",
			zap.String("table", table),
			zap.String("id", id),
			zap.Error(err))
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		_, err := m.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &table,
			Item:      item,
		})
		if err != nil {
			m.logRemoteError("remote upsert failed", table, id, err)
			return
		}
		m.log.Debug("remote upsert", zap.String("table", table), zap.String("id", id))
	}()
}

// PullCatalog scans the remote products table.
// Records that cannot be decoded are skipped and logged.
func (m *Mirror) PullCatalog(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	products := []models.Product{}
	p := dynamodb.NewScanPaginator(m.client, &dynamodb.ScanInput{
		TableName: &m.tables.Products,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			m.logRemoteError("catalog scan failed", m.tables.Products, "", err)
			return nil, fmt.Errorf("scan %s: %w", m.tables.Products, err)
		}
		for _, item := range page.Items {
			product, err := decodeProduct(item)
			if err != nil {
				m.log.Warn("skipping remote product", zap.Error(err))
				continue
			}
			products = append(products, product)
		}
	}
	return products, nil
}

func decodeProduct(item map[string]types.AttributeValue) (models.Product, error) {
	var r remoteProduct
	if err := attributevalue.UnmarshalMap(item, &r); err != nil {
		return models.Product{}, fmt.Errorf("unmarshal product: %w", err)
	}
	if r.ID == "" {
		return models.Product{}, errors.New("unmarshal product: missing id")
	}
	return fromRemoteProduct(r)
}

func (m *Mirror) logRemoteError(msg, table, id string, err error) {
	fields := []zap.Field{zap.String("table", table), zap.Error(err)}
	if id != "" {
		fields = append(fields, zap.String("id", id))
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields,
			zap.String("code", apiErr.ErrorCode()),
			zap.String("fault", apiErr.ErrorFault().String()))
	}
	m.log.Warn(msg, fields...)
}

// Nop is a Remote that does nothing, for when no remote is configured.
type Nop struct{}

func (Nop) PushProduct(models.Product)   {}
func (Nop) PushOrder(models.Order)       {}
func (Nop) PushCustomer(models.Customer) {}
func (Nop) PushMerchant(models.Merchant) {}
func (Nop) Wait()                        {}

// PullCatalog returns no products.
func (Nop) PullCatalog(context.Context) ([]models.Product, error) {
	return []models.Product{}, nil
}
