package directory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolsnap/poolsnap/pkg/types"
)

func TestMapErrorUsernameExists(t *testing.T) {
	err := fmt.Errorf("operation error Cognito Identity Provider: AdminCreateUser: %w",
		&cognitotypes.UsernameExistsException{Message: aws.String("User account already exists")})

	mapped := mapError(err)
	assert.ErrorIs(t, mapped, ErrAlreadyExists)
	assert.Contains(t, mapped.Error(), "User account already exists")
}

func TestMapErrorGroupExists(t *testing.T) {
	err := fmt.Errorf("operation error Cognito Identity Provider: CreateGroup: %w",
		&cognitotypes.GroupExistsException{Message: aws.String("A group with the name already exists")})

	assert.ErrorIs(t, mapError(err), ErrAlreadyExists)
}

func TestMapErrorResourceNotFound(t *testing.T) {
	err := fmt.Errorf("operation error Cognito Identity Provider: DescribeUserPool: %w",
		&cognitotypes.ResourceNotFoundException{Message: aws.String("User pool does not exist")})

	assert.ErrorIs(t, mapError(err), ErrNotFound)
}

func TestMapErrorPassesThroughUnknownErrors(t *testing.T) {
	err := errors.New("connection reset by peer")
	assert.Equal(t, err, mapError(err))
}

func TestApplyPoolSettings(t *testing.T) {
	settings := types.PoolMetadata{
		"Policies": map[string]any{
			"PasswordPolicy": map[string]any{
				"MinimumLength":    float64(12),
				"RequireUppercase": true,
			},
		},
		"AutoVerifiedAttributes": []any{"email"},
		"UsernameAttributes":     []any{"email"},
		"MfaConfiguration":       "OPTIONAL",
		"AdminCreateUserConfig": map[string]any{
			"AllowAdminCreateUserOnly": true,
		},
	}

	input := &cognito.CreateUserPoolInput{PoolName: aws.String("restored")}
	require.NoError(t, applyPoolSettings(input, settings))

	require.NotNil(t, input.Policies)
	require.NotNil(t, input.Policies.PasswordPolicy)
	assert.Equal(t, aws.Int32(12), input.Policies.PasswordPolicy.MinimumLength)
	assert.True(t, input.Policies.PasswordPolicy.RequireUppercase)
	assert.Equal(t, []cognitotypes.VerifiedAttributeType{cognitotypes.VerifiedAttributeTypeEmail}, input.AutoVerifiedAttributes)
	assert.Equal(t, []cognitotypes.UsernameAttributeType{cognitotypes.UsernameAttributeTypeEmail}, input.UsernameAttributes)
	assert.Equal(t, cognitotypes.UserPoolMfaTypeOptional, input.MfaConfiguration)
	require.NotNil(t, input.AdminCreateUserConfig)
	assert.True(t, input.AdminCreateUserConfig.AllowAdminCreateUserOnly)
}

func TestApplyPoolSettingsIgnoresUnknownAndNilKeys(t *testing.T) {
	settings := types.PoolMetadata{
		"EstimatedNumberOfUsers": float64(42),
		"LambdaConfig":           nil,
	}

	input := &cognito.CreateUserPoolInput{PoolName: aws.String("restored")}
	require.NoError(t, applyPoolSettings(input, settings))

	assert.Nil(t, input.LambdaConfig)
	assert.Nil(t, input.Policies)
}

func TestApplyPoolSettingsRejectsMalformedSetting(t *testing.T) {
	settings := types.PoolMetadata{
		"Policies": "not-an-object",
	}

	input := &cognito.CreateUserPoolInput{PoolName: aws.String("restored")}
	err := applyPoolSettings(input, settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Policies")
}
