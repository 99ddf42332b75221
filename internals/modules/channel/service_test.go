package channel

import (
	"context"
	"testing"

	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"

	"github.com/google/uuid"
)

func TestValidateDestination(t *testing.T) {
	v := utils.NewValidator()

	tests := []struct {
		typ  Type
		dest string
		ok   bool
	}{
		{TypeEmail, "ops@example.com", true},
		{TypeEmail, "ops.example.com", false},
		{TypeSMS, "+14155550123", true},
		{TypeSMS, "4155550123", false},
		{TypeCall, "+442071838750", true},
		{TypeCall, "+44 20 7183 8750", false},
		{TypeSlack, "https://hooks.slack.com/services/T000/B000/XXXX", true},
		{TypeSlack, "http://hooks.slack.com/services/T000/B000/XXXX", false},
		{TypeSlack, "hooks.slack.com/services", false},
		{Type("pager"), "anything", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ)+" "+tt.dest, func(t *testing.T) {
			err := ValidateDestination(v, "test.validate", tt.typ, tt.dest)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !apperror.IsKind(err, apperror.InvalidInput) {
				t.Fatalf("expected invalid_input, got %v", err)
			}
		})
	}
}

type memRepo struct {
	channels map[uuid.UUID]Channel
	updates  int
}

func (r *memRepo) Create(ctx context.Context, cmd CreateChannelCmd) (Channel, error) {
	ch := Channel{ID: uuid.New(), UserID: cmd.UserID, Type: cmd.Type, Destination: cmd.Destination, Enabled: cmd.Enabled}
	r.channels[ch.ID] = ch
	return ch, nil
}

func (r *memRepo) Get(ctx context.Context, userID, id uuid.UUID) (Channel, error) {
	ch, ok := r.channels[id]
	if !ok || ch.UserID != userID {
		return Channel{}, notFound("test.get", "channel not found")
	}
	return ch, nil
}

func (r *memRepo) List(ctx context.Context, userID uuid.UUID) ([]Channel, error) {
	out := []Channel{}
	for _, ch := range r.channels {
		if ch.UserID == userID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *memRepo) Update(ctx context.Context, userID, id uuid.UUID, cmd UpdateChannelCmd) (Channel, error) {
	ch, err := r.Get(ctx, userID, id)
	if err != nil {
		return Channel{}, err
	}
	r.updates++
	if cmd.Destination != nil {
		ch.Destination = *cmd.Destination
	}
	if cmd.Enabled != nil {
		ch.Enabled = *cmd.Enabled
	}
	r.channels[id] = ch
	return ch, nil
}

func (r *memRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := r.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(r.channels, id)
	return nil
}

func TestServiceCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{channels: map[uuid.UUID]Channel{}}
	svc := NewService(repo, utils.NewValidator())
	userID := uuid.New()

	if _, err := svc.Create(ctx, CreateChannelCmd{UserID: userID, Type: TypeSMS, Destination: "not-a-phone"}); !apperror.IsKind(err, apperror.InvalidInput) {
		t.Fatalf("expected invalid_input, got %v", err)
	}
	if len(repo.channels) != 0 {
		t.Fatal("invalid channel must not be stored")
	}

	ch, err := svc.Create(ctx, CreateChannelCmd{UserID: userID, Type: TypeEmail, Destination: "  ops@example.com ", Enabled: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ch.Destination != "ops@example.com" {
		t.Fatalf("destination not trimmed: %q", ch.Destination)
	}

	t.Run("empty update", func(t *testing.T) {
		_, err := svc.Update(ctx, userID, ch.ID, UpdateChannelCmd{})
		if !apperror.IsKind(err, apperror.InvalidInput) {
			t.Fatalf("expected invalid_input, got %v", err)
		}
	})

	t.Run("destination checked against stored type", func(t *testing.T) {
		phone := "+14155550123"
		_, err := svc.Update(ctx, userID, ch.ID, UpdateChannelCmd{Destination: &phone})
		if !apperror.IsKind(err, apperror.InvalidInput) {
			t.Fatalf("expected invalid_input, got %v", err)
		}
		if repo.updates != 0 {
			t.Fatal("rejected update must not reach the repository")
		}
	})

	t.Run("toggle", func(t *testing.T) {
		off := false
		got, err := svc.Update(ctx, userID, ch.ID, UpdateChannelCmd{Enabled: &off})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Enabled || got.Destination != "ops@example.com" {
			t.Fatalf("unexpected channel: %+v", got)
		}
	})

	t.Run("foreign channel", func(t *testing.T) {
		dest := "a@example.com"
		_, err := svc.Update(ctx, uuid.New(), ch.ID, UpdateChannelCmd{Destination: &dest})
		if !apperror.IsKind(err, apperror.NotFound) {
			t.Fatalf("expected not_found, got %v", err)
		}
	})
}
