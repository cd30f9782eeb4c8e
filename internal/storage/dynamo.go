package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sensing-garden/backend/internal/domain"
)

// ErrNotFound reports a read or update against a record that is not there.
var ErrNotFound = errors.New("record not found")

// DynamoAPI is the subset of the DynamoDB client the store uses. The
// concrete *dynamodb.Client satisfies it; tests substitute fakes.
type DynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// TableNames maps record families to DynamoDB table names.
type TableNames struct {
	Detections      string `yaml:"detections"`
	Classifications string `yaml:"classifications"`
	Models          string `yaml:"models"`
	Videos          string `yaml:"videos"`
	Environmental   string `yaml:"environmental"`
	Devices         string `yaml:"devices"`
}

// DefaultTableNames derives the conventional table names from a prefix,
// e.g. "sensing-garden" gives sensing-garden-detections and so on.
func DefaultTableNames(prefix string) TableNames {
	return TableNames{
		Detections:      prefix + "-detections",
		Classifications: prefix + "-classifications",
		Models:          prefix + "-models",
		Videos:          prefix + "-videos",
		Environmental:   prefix + "-environmental",
		Devices:         prefix + "-devices",
	}
}

// For returns the table name for t, or "" when unmapped.
func (n TableNames) For(t domain.TableType) string {
	switch t {
	case domain.TableDetection:
		return n.Detections
	case domain.TableClassification:
		return n.Classifications
	case domain.TableModel:
		return n.Models
	case domain.TableVideo:
		return n.Videos
	case domain.TableEnvironmental:
		return n.Environmental
	case domain.TableDevice:
		return n.Devices
	}
	return ""
}

// Store reads and writes records in DynamoDB. It implements the export
// package's Querier.
type Store struct {
	db     DynamoAPI
	tables TableNames
}

// NewStore builds a Store over db.
func NewStore(db DynamoAPI, tables TableNames) *Store {
	return &Store{db: db, tables: tables}
}

// hashFilter returns the hash key value a request filters on: the model
// id for the models table, the device id everywhere else.
func hashFilter(table domain.TableType, p domain.QueryParams) string {
	if table == domain.TableModel {
		return p.ModelID
	}
	return p.DeviceID
}

// Query returns one page of records. When the table's hash key is
// filtered it runs a key-condition query with the start bound inclusive
// in the condition and the end bound exclusive in a filter; without a
// hash filter it falls back to a scan with both bounds in the filter.
func (s *Store) Query(ctx context.Context, table domain.TableType, p domain.QueryParams) (domain.QueryPage, error) {
	name := s.tables.For(table)
	if name == "" {
		return domain.QueryPage{}, fmt.Errorf("no table configured for %s", table)
	}

	startKey, err := decodeToken(p.NextToken)
	if err != nil {
		return domain.QueryPage{}, err
	}

	var (
		items   []map[string]types.AttributeValue
		lastKey map[string]types.AttributeValue
	)
	if hashFilter(table, p) != "" {
		input := buildQueryInput(name, table, p, startKey, false)
		out, qerr := s.db.Query(ctx, input)
		if qerr != nil {
			return domain.QueryPage{}, fmt.Errorf("querying %s: %w", name, qerr)
		}
		items, lastKey = out.Items, out.LastEvaluatedKey
	} else {
		input := buildScanInput(name, table, p, startKey, false)
		out, serr := s.db.Scan(ctx, input)
		if serr != nil {
			return domain.QueryPage{}, fmt.Errorf("scanning %s: %w", name, serr)
		}
		items, lastKey = out.Items, out.LastEvaluatedKey
	}

	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		var rec domain.Record
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return domain.QueryPage{}, fmt.Errorf("unmarshaling item from %s: %w", name, err)
		}
		records = append(records, rec)
	}

	if p.SortBy != "" && p.SortBy != table.RangeAttribute() {
		sortRecords(records, p.SortBy, p.SortDesc)
	}

	token, err := encodeToken(lastKey)
	if err != nil {
		return domain.QueryPage{}, err
	}
	return domain.QueryPage{Items: records, NextToken: token}, nil
}

// Count sums matching items across all pages using COUNT selects, so no
// item payloads cross the wire.
func (s *Store) Count(ctx context.Context, table domain.TableType, p domain.QueryParams) (int, error) {
	name := s.tables.For(table)
	if name == "" {
		return 0, fmt.Errorf("no table configured for %s", table)
	}

	total := 0
	var startKey map[string]types.AttributeValue
	for {
		var count int32
		if hashFilter(table, p) != "" {
			input := buildQueryInput(name, table, p, startKey, true)
			out, err := s.db.Query(ctx, input)
			if err != nil {
				return 0, fmt.Errorf("counting %s: %w", name, err)
			}
			count, startKey = out.Count, out.LastEvaluatedKey
		} else {
			input := buildScanInput(name, table, p, startKey, true)
			out, err := s.db.Scan(ctx, input)
			if err != nil {
				return 0, fmt.Errorf("counting %s: %w", name, err)
			}
			count, startKey = out.Count, out.LastEvaluatedKey
		}
		total += int(count)
		if len(startKey) == 0 {
			return total, nil
		}
	}
}

// Put writes rec to the table, replacing any item with the same key.
func (s *Store) Put(ctx context.Context, table domain.TableType, rec domain.Record) error {
	name := s.tables.For(table)
	if name == "" {
		return fmt.Errorf("no table configured for %s", table)
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshaling record for %s: %w", name, err)
	}
	if _, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(name),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("putting item to %s: %w", name, err)
	}
	return nil
}

// DeleteByDevice removes every row for deviceID from table and returns
// the number of rows removed. Unknown devices remove zero rows. Only
// tables keyed by device_id can be targeted.
func (s *Store) DeleteByDevice(ctx context.Context, table domain.TableType, deviceID string) (int, error) {
	name := s.tables.For(table)
	if name == "" {
		return 0, fmt.Errorf("no table configured for %s", table)
	}
	if table.KeyAttribute() != "device_id" {
		return 0, fmt.Errorf("table %s is not keyed by device_id", table)
	}

	rangeAttr := table.RangeAttribute()
	deleted := 0
	token := ""
	for {
		page, err := s.Query(ctx, table, domain.QueryParams{DeviceID: deviceID, NextToken: token})
		if err != nil {
			return deleted, err
		}
		for _, rec := range page.Items {
			key := map[string]types.AttributeValue{
				"device_id": &types.AttributeValueMemberS{Value: deviceID},
			}
			if rangeAttr != "" {
				key[rangeAttr] = &types.AttributeValueMemberS{Value: rec.GetString(rangeAttr)}
			}
			if _, err := s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(name),
				Key:       key,
			}); err != nil {
				return deleted, fmt.Errorf("deleting from %s: %w", name, err)
			}
			deleted++
		}
		if page.NextToken == "" {
			return deleted, nil
		}
		token = page.NextToken
	}
}

// UpdateDevice merges fields over the stored device row and writes it
// back. Returns ErrNotFound for an unknown device.
func (s *Store) UpdateDevice(ctx context.Context, deviceID string, fields domain.Record) (domain.Record, error) {
	page, err := s.Query(ctx, domain.TableDevice, domain.QueryParams{DeviceID: deviceID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, ErrNotFound
	}
	merged := page.Items[0].Clone()
	for k, v := range fields {
		if k == "device_id" || k == "created" {
			continue
		}
		merged[k] = v
	}
	if err := s.Put(ctx, domain.TableDevice, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func buildQueryInput(name string, table domain.TableType, p domain.QueryParams, startKey map[string]types.AttributeValue, forCount bool) *dynamodb.QueryInput {
	expr := newExprBuilder()
	keyCond := fmt.Sprintf("%s = %s", expr.name(table.KeyAttribute()), expr.value(hashFilter(table, p)))

	rangeAttr := table.RangeAttribute()
	if rangeAttr != "" && p.StartTime != "" {
		keyCond += fmt.Sprintf(" AND %s >= %s", expr.name(rangeAttr), expr.value(p.StartTime))
	}

	var filters []string
	if rangeAttr != "" && p.EndTime != "" {
		filters = append(filters, fmt.Sprintf("%s < %s", expr.name(rangeAttr), expr.value(p.EndTime)))
	}
	if p.ModelID != "" && table != domain.TableModel {
		filters = append(filters, fmt.Sprintf("%s = %s", expr.name("model_id"), expr.value(p.ModelID)))
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(name),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  expr.names,
		ExpressionAttributeValues: expr.values,
		ScanIndexForward:          aws.Bool(!p.SortDesc),
		ExclusiveStartKey:         startKey,
	}
	if len(filters) > 0 {
		input.FilterExpression = aws.String(strings.Join(filters, " AND "))
	}
	if forCount {
		input.Select = types.SelectCount
	} else if p.Limit > 0 {
		input.Limit = aws.Int32(int32(p.Limit))
	}
	return input
}

func buildScanInput(name string, table domain.TableType, p domain.QueryParams, startKey map[string]types.AttributeValue, forCount bool) *dynamodb.ScanInput {
	expr := newExprBuilder()

	var filters []string
	rangeAttr := table.RangeAttribute()
	if rangeAttr != "" && p.StartTime != "" {
		filters = append(filters, fmt.Sprintf("%s >= %s", expr.name(rangeAttr), expr.value(p.StartTime)))
	}
	if rangeAttr != "" && p.EndTime != "" {
		filters = append(filters, fmt.Sprintf("%s < %s", expr.name(rangeAttr), expr.value(p.EndTime)))
	}
	if p.ModelID != "" && table != domain.TableModel {
		filters = append(filters, fmt.Sprintf("%s = %s", expr.name("model_id"), expr.value(p.ModelID)))
	}

	input := &dynamodb.ScanInput{
		TableName:         aws.String(name),
		ExclusiveStartKey: startKey,
	}
	if len(filters) > 0 {
		input.FilterExpression = aws.String(strings.Join(filters, " AND "))
		input.ExpressionAttributeNames = expr.names
		input.ExpressionAttributeValues = expr.values
	}
	if forCount {
		input.Select = types.SelectCount
	} else if p.Limit > 0 {
		input.Limit = aws.Int32(int32(p.Limit))
	}
	return input
}

// exprBuilder accumulates expression attribute names and values with
// stable placeholder numbering.
type exprBuilder struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

func newExprBuilder() *exprBuilder {
	return &exprBuilder{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
	}
}

func (e *exprBuilder) name(attr string) string {
	placeholder := "#" + attr
	e.names[placeholder] = attr
	return placeholder
}

func (e *exprBuilder) value(s string) string {
	placeholder := ":v" + strconv.Itoa(len(e.values))
	e.values[placeholder] = &types.AttributeValueMemberS{Value: s}
	return placeholder
}

// sortRecords orders records in place by the named field. Values that
// both parse as numbers compare numerically, otherwise as strings.
// Records missing the field sort last regardless of direction.
func sortRecords(records []domain.Record, field string, desc bool) {
	sort.SliceStable(records, func(i, j int) bool {
		a, aok := fieldSortKey(records[i], field)
		b, bok := fieldSortKey(records[j], field)
		if !aok || !bok {
			return aok && !bok
		}
		if desc {
			return sortKeyLess(b, a)
		}
		return sortKeyLess(a, b)
	})
}

func sortKeyLess(a, b string) bool {
	af, aErr := strconv.ParseFloat(a, 64)
	bf, bErr := strconv.ParseFloat(b, 64)
	if aErr == nil && bErr == nil {
		return af < bf
	}
	return a < b
}

func fieldSortKey(rec domain.Record, field string) (string, bool) {
	v, ok := rec[field]
	if !ok || v.IsNull() {
		return "", false
	}
	if text, isNum := v.NumberText(); isNum {
		return text, true
	}
	if s, isStr := v.AsString(); isStr {
		return s, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// encodeToken packs a DynamoDB LastEvaluatedKey into an opaque URL-safe
// token. An empty key encodes as "".
func encodeToken(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	var rec domain.Record
	if err := attributevalue.UnmarshalMap(key, &rec); err != nil {
		return "", fmt.Errorf("encoding pagination token: %w", err)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encoding pagination token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeToken reverses encodeToken. "" decodes to a nil key.
func decodeToken(token string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid next_token: %w", err)
	}
	rec, err := domain.RecordFromJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid next_token: %w", err)
	}
	key, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("invalid next_token: %w", err)
	}
	return key, nil
}
