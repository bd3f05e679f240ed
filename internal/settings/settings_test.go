package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	value string
	err   error
	calls int
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Name: in.Name, Value: aws.String(f.value)},
	}, nil
}

func TestStatic(t *testing.T) {
	got, err := Static("https://cdn.example/p.png").PlaceholderSetting(context.Background())
	if err != nil || got != "https://cdn.example/p.png" {
		t.Errorf("PlaceholderSetting() = %q, %v", got, err)
	}
}

func TestEnv_ReadsFreshEachCall(t *testing.T) {
	e := Env("TEST_IMAGE_PLACEHOLDER")
	t.Setenv("TEST_IMAGE_PLACEHOLDER", "first")
	if got, _ := e.PlaceholderSetting(context.Background()); got != "first" {
		t.Errorf("got %q, want first", got)
	}
	t.Setenv("TEST_IMAGE_PLACEHOLDER", "second")
	if got, _ := e.PlaceholderSetting(context.Background()); got != "second" {
		t.Errorf("got %q, want second", got)
	}
}

func TestSSMStore(t *testing.T) {
	fake := &fakeSSM{value: "https://cdn.example/p.png"}
	s := &SSMStore{client: fake, param: DefaultSSMParam}

	for i := 0; i < 2; i++ {
		got, err := s.PlaceholderSetting(context.Background())
		if err != nil || got != "https://cdn.example/p.png" {
			t.Fatalf("PlaceholderSetting() = %q, %v", got, err)
		}
	}
	if fake.calls != 2 {
		t.Errorf("GetParameter calls = %d, want 2 (no caching)", fake.calls)
	}
}

func TestSSMStore_NotFound(t *testing.T) {
	fake := &fakeSSM{err: &ssmtypes.ParameterNotFound{}}
	s := &SSMStore{client: fake, param: DefaultSSMParam}

	got, err := s.PlaceholderSetting(context.Background())
	if err != nil || got != "" {
		t.Errorf("PlaceholderSetting() = %q, %v; want empty, nil", got, err)
	}
}

func TestSSMStore_Error(t *testing.T) {
	fake := &fakeSSM{err: errors.New("access denied")}
	s := &SSMStore{client: fake, param: DefaultSSMParam}

	if _, err := s.PlaceholderSetting(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestNewSSMStore_DefaultParam(t *testing.T) {
	if got := NewSSMStore(nil, "").Param(); got != DefaultSSMParam {
		t.Errorf("Param() = %q, want %q", got, DefaultSSMParam)
	}
}
