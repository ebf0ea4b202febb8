package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"people-partner/internal/domain"
)

const (
	skPrefixTurn = "TURN#"
	skMeta       = "META#"

	// Fixed-width so sort keys order lexically by time.
	skTimeLayout = "2006-01-02T15:04:05.000000000Z"

	// DynamoDB caps a transaction at 100 items; one slot is the meta record.
	maxTxItems        = 100
	maxTurnsPerAppend = maxTxItems - 1
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoDBStore.
type dynamodbAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoDBStore keeps sessions in a single table keyed by PK=SESSION#<id>,
// one item per turn plus a META# item tracking activity. With a ttl every
// append moves the expiry of all the session's items forward, so a session
// expires as a whole once it has been idle for ttl.
type DynamoDBStore struct {
	api       dynamodbAPI
	tableName string
	// ttl sets the item expiry attribute. Zero writes no ttl attribute.
	ttl time.Duration
	now func() time.Time
}

func NewDynamoDBStore(api dynamodbAPI, tableName string, ttl time.Duration) (*DynamoDBStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &DynamoDBStore{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

// turnSK orders turns by creation time; seq keeps turns written in the same
// call ordered and batch keeps concurrent appends with equal timestamps from
// colliding.
func turnSK(ts time.Time, seq int, batch string) string {
	return fmt.Sprintf("%s%s#%02d#%s", skPrefixTurn, ts.UTC().Format(skTimeLayout), seq, batch)
}

// History queries newest first so the limit favors recent context, then
// reverses into chronological order.
func (s *DynamoDBStore) History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
		},
		ScanIndexForward: aws.Bool(false),
		ConsistentRead:   aws.Bool(true),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	cutoff := s.now().Unix()
	var turns []domain.Turn
	for {
		out, err := s.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: history query: %w", err)
		}
		for _, item := range out.Items {
			// Expired items linger until DynamoDB deletes them.
			if exp, err := int64Attr(item, "ttl"); err == nil && exp <= cutoff {
				continue
			}
			t, err := itemToTurn(item)
			if err != nil {
				return nil, fmt.Errorf("repository: history unmarshal: %w", err)
			}
			turns = append(turns, t)
		}
		if limit > 0 && len(turns) >= limit {
			turns = turns[:limit]
			break
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Append writes the turns and the refreshed meta record in one transaction.
// With a ttl the session's earlier turns get the new expiry too, in the same
// transaction while it has room and in follow-up transactions after that.
func (s *DynamoDBStore) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	if len(turns) > maxTurnsPerAppend {
		return fmt.Errorf("repository: append: %d turns exceeds transaction limit", len(turns))
	}

	now := s.now().UTC()
	pk := sessionPK(sessionID)

	var earlier []string
	if s.ttl > 0 {
		var err error
		earlier, err = s.turnKeys(ctx, pk)
		if err != nil {
			return fmt.Errorf("repository: append: %w", err)
		}
	}

	batch := uuid.NewString()[:8]
	items := make([]types.TransactWriteItem, 0, maxTxItems)
	for i, t := range turns {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                s.turnItem(pk, turnSK(now, i, batch), sessionID, t, now),
				ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
			},
		})
	}
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(s.tableName),
			Item:      s.metaItem(pk, sessionID, now),
		},
	})

	fit := min(maxTxItems-len(items), len(earlier))
	for _, sk := range earlier[:fit] {
		items = append(items, s.refreshTTL(pk, sk, now))
	}
	if _, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return fmt.Errorf("repository: append: %w", err)
	}

	for rest := earlier[fit:]; len(rest) > 0; {
		n := min(maxTxItems, len(rest))
		refresh := make([]types.TransactWriteItem, 0, n)
		for _, sk := range rest[:n] {
			refresh = append(refresh, s.refreshTTL(pk, sk, now))
		}
		if _, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: refresh}); err != nil {
			return fmt.Errorf("repository: refresh session expiry: %w", err)
		}
		rest = rest[n:]
	}
	return nil
}

// turnKeys lists the sort keys of every stored turn of a session.
func (s *DynamoDBStore) turnKeys(ctx context.Context, pk string) ([]string, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: pk},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
		},
		ProjectionExpression: aws.String("PK, SK"),
		ConsistentRead:       aws.Bool(true),
	}

	var keys []string
	for {
		out, err := s.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("list turn keys: %w", err)
		}
		for _, item := range out.Items {
			sk, err := strAttr(item, "SK")
			if err != nil {
				return nil, err
			}
			keys = append(keys, sk)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return keys, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// refreshTTL moves an existing turn's expiry forward. The condition keeps a
// turn deleted in the meantime from coming back as a bare key.
func (s *DynamoDBStore) refreshTTL(pk, sk string, now time.Time) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: pk},
				"SK": &types.AttributeValueMemberS{Value: sk},
			},
			UpdateExpression:         aws.String("SET #ttl = :ttl"),
			ConditionExpression:      aws.String("attribute_exists(PK)"),
			ExpressionAttributeNames: map[string]string{"#ttl": "ttl"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":ttl": &types.AttributeValueMemberN{Value: s.expiry(now)},
			},
		},
	}
}

// Prune is a no-op; the table's TTL attribute expires idle sessions.
func (s *DynamoDBStore) Prune(context.Context, time.Duration) (int, error) {
	return 0, nil
}

func (s *DynamoDBStore) Close() error {
	return nil
}

func (s *DynamoDBStore) turnItem(pk, sk, sessionID string, t domain.Turn, now time.Time) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: pk},
		"SK":        &types.AttributeValueMemberS{Value: sk},
		"sessionId": &types.AttributeValueMemberS{Value: sessionID},
		"role":      &types.AttributeValueMemberS{Value: t.Role},
		"content":   &types.AttributeValueMemberS{Value: t.Content},
		"category":  &types.AttributeValueMemberS{Value: t.Category},
		"createdAt": &types.AttributeValueMemberN{Value: strconv.FormatInt(t.CreatedAt.UnixNano(), 10)},
	}
	s.setTTL(item, now)
	return item
}

func (s *DynamoDBStore) metaItem(pk, sessionID string, now time.Time) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: pk},
		"SK":           &types.AttributeValueMemberS{Value: skMeta},
		"sessionId":    &types.AttributeValueMemberS{Value: sessionID},
		"lastActivity": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
	}
	s.setTTL(item, now)
	return item
}

func (s *DynamoDBStore) setTTL(item map[string]types.AttributeValue, now time.Time) {
	if s.ttl <= 0 {
		return
	}
	item["ttl"] = &types.AttributeValueMemberN{Value: s.expiry(now)}
}

func (s *DynamoDBStore) expiry(now time.Time) string {
	return strconv.FormatInt(now.Add(s.ttl).Unix(), 10)
}

func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.Turn{}, err
	}
	content, err := strAttr(item, "content")
	if err != nil {
		return domain.Turn{}, err
	}
	category, _ := strAttr(item, "category") // allow empty
	createdAt, err := int64Attr(item, "createdAt")
	if err != nil {
		return domain.Turn{}, err
	}
	return domain.Turn{
		Role:      role,
		Content:   content,
		Category:  category,
		CreatedAt: time.Unix(0, createdAt).UTC(),
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
