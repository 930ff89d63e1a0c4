package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"go.uber.org/zap"

	"github.com/poolsnap/poolsnap/pkg/types"
)

// CognitoClient implements Client against AWS Cognito.
type CognitoClient struct {
	client *cognito.Client
	log    *zap.Logger
}

// NewCognitoClient creates a CognitoClient using the default AWS
// configuration chain.
func NewCognitoClient(ctx context.Context, log *zap.Logger) (*CognitoClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &CognitoClient{
		client: cognito.NewFromConfig(cfg),
		log:    log,
	}, nil
}

// DescribePool returns the pool configuration as a verbatim key-value
// document, so the snapshot carries whatever the service reported rather
// than a lossy typed subset.
func (c *CognitoClient) DescribePool(ctx context.Context, poolID string) (types.PoolMetadata, error) {
	output, err := c.client.DescribeUserPool(ctx, &cognito.DescribeUserPoolInput{
		UserPoolId: aws.String(poolID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe user pool: %w", mapError(err))
	}

	raw, err := json.Marshal(output.UserPool)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user pool configuration: %w", err)
	}
	var meta types.PoolMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode user pool configuration: %w", err)
	}
	return meta, nil
}

// ListUsers drains the paginated user listing for the pool.
func (c *CognitoClient) ListUsers(ctx context.Context, poolID string) ([]types.UserRecord, error) {
	var users []types.UserRecord
	var nextToken *string

	for {
		output, err := c.client.ListUsers(ctx, &cognito.ListUsersInput{
			UserPoolId:      aws.String(poolID),
			PaginationToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get user list: %w", mapError(err))
		}

		for _, user := range output.Users {
			record := types.UserRecord{
				Username: aws.ToString(user.Username),
				Status:   string(user.UserStatus),
				Enabled:  user.Enabled,
			}
			for _, attr := range user.Attributes {
				record.Attributes = append(record.Attributes, types.Attribute{
					Name:  aws.ToString(attr.Name),
					Value: aws.ToString(attr.Value),
				})
			}
			users = append(users, record)
		}

		if output.PaginationToken == nil {
			break
		}
		nextToken = output.PaginationToken
	}

	return users, nil
}

// ListUserGroups returns the names of the groups the user belongs to,
// draining pagination.
func (c *CognitoClient) ListUserGroups(ctx context.Context, poolID, username string) ([]string, error) {
	var groups []string
	var nextToken *string

	for {
		output, err := c.client.AdminListGroupsForUser(ctx, &cognito.AdminListGroupsForUserInput{
			UserPoolId: aws.String(poolID),
			Username:   aws.String(username),
			NextToken:  nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get user group list: %w", mapError(err))
		}

		for _, group := range output.Groups {
			groups = append(groups, aws.ToString(group.GroupName))
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return groups, nil
}

// ListGroups returns every group definition in the pool, draining
// pagination.
func (c *CognitoClient) ListGroups(ctx context.Context, poolID string) ([]types.GroupRecord, error) {
	var groups []types.GroupRecord
	var nextToken *string

	for {
		output, err := c.client.ListGroups(ctx, &cognito.ListGroupsInput{
			UserPoolId: aws.String(poolID),
			NextToken:  nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get group list: %w", mapError(err))
		}

		for _, group := range output.Groups {
			groups = append(groups, types.GroupRecord{
				Name:        aws.ToString(group.GroupName),
				Description: aws.ToString(group.Description),
				Precedence:  group.Precedence,
			})
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return groups, nil
}

// CreatePool creates a new user pool from a submittable settings view and
// returns the assigned pool identifier. The caller is responsible for
// stripping read-only fields; unknown keys in the settings are ignored.
func (c *CognitoClient) CreatePool(ctx context.Context, name string, settings types.PoolMetadata) (string, error) {
	input := &cognito.CreateUserPoolInput{
		PoolName: aws.String(name),
	}
	if err := applyPoolSettings(input, settings); err != nil {
		return "", err
	}

	output, err := c.client.CreateUserPool(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to create user pool: %w", mapError(err))
	}

	c.log.Info("created user pool",
		zap.String("pool_id", aws.ToString(output.UserPool.Id)),
		zap.String("name", name))
	return aws.ToString(output.UserPool.Id), nil
}

// CreateGroup creates one group in the pool.
func (c *CognitoClient) CreateGroup(ctx context.Context, poolID string, group types.GroupRecord) error {
	input := &cognito.CreateGroupInput{
		UserPoolId: aws.String(poolID),
		GroupName:  aws.String(group.Name),
		Precedence: group.Precedence,
	}
	if group.Description != "" {
		input.Description = aws.String(group.Description)
	}

	if _, err := c.client.CreateGroup(ctx, input); err != nil {
		return fmt.Errorf("failed to create group %s: %w", group.Name, mapError(err))
	}
	return nil
}

// CreateUser creates one user with the invitation message suppressed.
func (c *CognitoClient) CreateUser(ctx context.Context, poolID string, user NewUser) error {
	attrs := make([]cognitotypes.AttributeType, 0, len(user.Attributes))
	for _, attr := range user.Attributes {
		attrs = append(attrs, cognitotypes.AttributeType{
			Name:  aws.String(attr.Name),
			Value: aws.String(attr.Value),
		})
	}

	input := &cognito.AdminCreateUserInput{
		UserPoolId:        aws.String(poolID),
		Username:          aws.String(user.Username),
		UserAttributes:    attrs,
		MessageAction:     cognitotypes.MessageActionTypeSuppress,
		TemporaryPassword: aws.String(user.TemporaryPassword),
	}

	if _, err := c.client.AdminCreateUser(ctx, input); err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Username, mapError(err))
	}
	return nil
}

// SetPermanentPassword promotes the user's credential to a permanent one.
func (c *CognitoClient) SetPermanentPassword(ctx context.Context, poolID, username, password string) error {
	input := &cognito.AdminSetUserPasswordInput{
		UserPoolId: aws.String(poolID),
		Username:   aws.String(username),
		Password:   aws.String(password),
		Permanent:  true,
	}

	if _, err := c.client.AdminSetUserPassword(ctx, input); err != nil {
		return fmt.Errorf("failed to set permanent password for %s: %w", username, mapError(err))
	}
	return nil
}

// AddUserToGroup records one membership edge.
func (c *CognitoClient) AddUserToGroup(ctx context.Context, poolID, username, groupName string) error {
	input := &cognito.AdminAddUserToGroupInput{
		UserPoolId: aws.String(poolID),
		Username:   aws.String(username),
		GroupName:  aws.String(groupName),
	}

	if _, err := c.client.AdminAddUserToGroup(ctx, input); err != nil {
		return fmt.Errorf("failed to add user %s to group %s: %w", username, groupName, mapError(err))
	}
	return nil
}

// applyPoolSettings maps the recognized keys of a captured pool document
// onto a create request. Keys not listed here are dropped; passing them
// through blindly would hand service-rejected fields to the create call.
func applyPoolSettings(input *cognito.CreateUserPoolInput, settings types.PoolMetadata) error {
	if err := decodeSetting(settings, "Policies", &input.Policies); err != nil {
		return err
	}
	if err := decodeSetting(settings, "SchemaAttributes", &input.Schema); err != nil {
		return err
	}
	if err := decodeSetting(settings, "LambdaConfig", &input.LambdaConfig); err != nil {
		return err
	}
	if err := decodeSetting(settings, "AutoVerifiedAttributes", &input.AutoVerifiedAttributes); err != nil {
		return err
	}
	if err := decodeSetting(settings, "UsernameAttributes", &input.UsernameAttributes); err != nil {
		return err
	}
	if err := decodeSetting(settings, "AliasAttributes", &input.AliasAttributes); err != nil {
		return err
	}
	if err := decodeSetting(settings, "AdminCreateUserConfig", &input.AdminCreateUserConfig); err != nil {
		return err
	}
	if err := decodeSetting(settings, "DeviceConfiguration", &input.DeviceConfiguration); err != nil {
		return err
	}
	if err := decodeSetting(settings, "UsernameConfiguration", &input.UsernameConfiguration); err != nil {
		return err
	}
	if err := decodeSetting(settings, "AccountRecoverySetting", &input.AccountRecoverySetting); err != nil {
		return err
	}
	if v, ok := settings["MfaConfiguration"].(string); ok {
		input.MfaConfiguration = cognitotypes.UserPoolMfaType(v)
	}
	return nil
}

// decodeSetting re-marshals one settings key into its SDK type. The
// documents round-trip exactly because they were produced by marshaling the
// same SDK types at backup time.
func decodeSetting(settings types.PoolMetadata, key string, dst any) error {
	value, ok := settings[key]
	if !ok || value == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode pool setting %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid pool setting %s: %w", key, err)
	}
	return nil
}

// mapError translates Cognito's typed exceptions into the directory error
// kinds so callers never have to pattern-match error text.
func mapError(err error) error {
	var (
		userExists  *cognitotypes.UsernameExistsException
		groupExists *cognitotypes.GroupExistsException
		notFound    *cognitotypes.ResourceNotFoundException
	)

	switch {
	case errors.As(err, &userExists):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, userExists.ErrorMessage())
	case errors.As(err, &groupExists):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, groupExists.ErrorMessage())
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %s", ErrNotFound, notFound.ErrorMessage())
	}
	return err
}
