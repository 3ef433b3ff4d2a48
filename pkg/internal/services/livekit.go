package services

import (
	"context"
	"errors"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go"
	"github.com/spf13/viper"
)

var Lk *lksdk.RoomServiceClient

var ErrNoProvider = errors.New("video provider is not connected")

func SetupLiveKit() {
	host := "https://" + viper.GetString("calling.endpoint")

	Lk = lksdk.NewRoomServiceClient(
		host,
		viper.GetString("calling.api_key"),
		viper.GetString("calling.api_secret"),
	)
}

// EnsureCallRoom creates the provider room for a call id. Creating an
// already existing room returns the existing one on the provider side, so
// concurrent joiners are safe to race here.
func EnsureCallRoom(callId string) error {
	if Lk == nil {
		return ErrNoProvider
	}
	_, err := Lk.CreateRoom(context.Background(), &livekit.CreateRoomRequest{
		Name:            callId,
		EmptyTimeout:    viper.GetUint32("calling.empty_timeout_duration"),
		MaxParticipants: viper.GetUint32("calling.max_participants"),
	})
	return err
}

func CloseCallRoom(callId string) error {
	if Lk == nil {
		return ErrNoProvider
	}
	_, err := Lk.DeleteRoom(context.Background(), &livekit.DeleteRoomRequest{
		Room: callId,
	})
	return err
}

func ListCallParticipants(callId string) ([]*livekit.ParticipantInfo, error) {
	if Lk == nil {
		return nil, ErrNoProvider
	}
	res, err := Lk.ListParticipants(context.Background(), &livekit.ListParticipantsRequest{
		Room: callId,
	})
	if err != nil {
		return nil, err
	}
	return res.Participants, nil
}
