// Package ssmparams reads runtime configuration from AWS Systems Manager Parameter Store.
package ssmparams

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/movement-pass/public-api/internal/ports/out/paramsource"
)

// maxResults is the largest page GetParametersByPath accepts.
const maxResults = 10

// API is the subset of the SSM client the source uses.
type API interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

var _ API = (*ssm.Client)(nil)

type Source struct {
	api API
}

var _ paramsource.Source = (*Source)(nil)

func New(api API) *Source {
	return &Source{api: api}
}

// NewFromConfig builds a Source over a fresh SSM client.
func NewFromConfig(cfg aws.Config) *Source {
	return New(ssm.NewFromConfig(cfg))
}

func (s *Source) FetchPage(ctx context.Context, root, nextToken string) (paramsource.Page, error) {
	in := &ssm.GetParametersByPathInput{
		Path:           aws.String(root),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
		MaxResults:     aws.Int32(maxResults),
	}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}

	out, err := s.api.GetParametersByPath(ctx, in)
	if err != nil {
		return paramsource.Page{}, fmt.Errorf("ssm get parameters by path %s: %w", root, err)
	}

	page := paramsource.Page{
		Entries:   make([]paramsource.Entry, 0, len(out.Parameters)),
		NextToken: aws.ToString(out.NextToken),
	}
	for _, p := range out.Parameters {
		page.Entries = append(page.Entries, paramsource.Entry{
			Name:  aws.ToString(p.Name),
			Value: aws.ToString(p.Value),
		})
	}
	return page, nil
}
