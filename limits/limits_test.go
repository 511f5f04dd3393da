package limits

import (
	"errors"
	"testing"
)

// TestHeaderSizeConstants verifies the fixed header sizes match their field breakdown
func TestHeaderSizeConstants(t *testing.T) {
	if MinHeaderSize != 1+2+1+4 {
		t.Errorf("MinHeaderSize = %d, want %d", MinHeaderSize, 1+2+1+4)
	}
	if MinProtocolHeaderSize != 1+1+2+2 {
		t.Errorf("MinProtocolHeaderSize = %d, want %d", MinProtocolHeaderSize, 1+1+2+2)
	}
}

// TestPrefixLimitsMatchWidth verifies the 16-bit prefixes bound the block limits
func TestPrefixLimitsMatchWidth(t *testing.T) {
	if MaxStreamMessage != 1<<(8*MessageLengthSize)-1 {
		t.Errorf("MaxStreamMessage = %d does not match a %d-byte prefix", MaxStreamMessage, MessageLengthSize)
	}
	if MaxExtensionBlock != 1<<(8*ExtensionLengthSize)-1 {
		t.Errorf("MaxExtensionBlock = %d does not match a %d-byte prefix", MaxExtensionBlock, ExtensionLengthSize)
	}
	if MaxUDPMessage >= MaxStreamMessage {
		t.Errorf("MaxUDPMessage (%d) should be < MaxStreamMessage (%d)", MaxUDPMessage, MaxStreamMessage)
	}
}

func TestValidateMessageSize(t *testing.T) {
	tests := []struct {
		name    string
		message []byte
		wantErr error
	}{
		{name: "nil message", message: nil, wantErr: ErrMessageEmpty},
		{name: "empty message", message: []byte{}, wantErr: ErrMessageEmpty},
		{name: "minimal header", message: make([]byte, MinHeaderSize), wantErr: nil},
		{name: "exactly mtu", message: make([]byte, MaxUDPMessage), wantErr: nil},
		{name: "over mtu", message: make([]byte, MaxUDPMessage+1), wantErr: ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageSize(tt.message, MaxUDPMessage)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessageSize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSize(t *testing.T) {
	if err := ValidateSize(0, 10); err != nil {
		t.Errorf("zero size rejected: %v", err)
	}
	if err := ValidateSize(10, 10); err != nil {
		t.Errorf("size at limit rejected: %v", err)
	}
	if err := ValidateSize(MessageLengthSize+MaxStreamMessage, MaxUDPMessage); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversized announced length error = %v, want %v", err, ErrMessageTooLarge)
	}
}

func TestValidateStreamBody(t *testing.T) {
	if err := ValidateStreamBody(make([]byte, MaxStreamMessage)); err != nil {
		t.Errorf("max stream body rejected: %v", err)
	}
	if err := ValidateStreamBody(make([]byte, MaxStreamMessage+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversized stream body error = %v, want %v", err, ErrMessageTooLarge)
	}
	if err := ValidateStreamBody(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("empty stream body error = %v, want %v", err, ErrMessageEmpty)
	}
}

func TestValidateExtensionBlock(t *testing.T) {
	if err := ValidateExtensionBlock(nil); err != nil {
		t.Errorf("empty extension block rejected: %v", err)
	}
	if err := ValidateExtensionBlock(make([]byte, MaxExtensionBlock)); err != nil {
		t.Errorf("max extension block rejected: %v", err)
	}
	if err := ValidateExtensionBlock(make([]byte, MaxExtensionBlock+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversized extension block error = %v, want %v", err, ErrMessageTooLarge)
	}
}

func TestValidateMessageSizeIncludesContext(t *testing.T) {
	err := ValidateMessageSize(make([]byte, 11), 10)
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("error = %v, want %v", err, ErrMessageTooLarge)
	}
	want := "message too large: size 11 exceeds limit 10"
	if err.Error() != want {
		t.Errorf("error text = %q, want %q", err.Error(), want)
	}
}
