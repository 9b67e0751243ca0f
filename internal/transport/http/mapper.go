package http

import (
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/proto"
)

func roomSummaries(infos []core.RoomInfo) []proto.RoomSummary {
	out := make([]proto.RoomSummary, 0, len(infos))
	for _, info := range infos {
		out = append(out, proto.RoomSummary{
			Name:        info.Name,
			Members:     info.Members,
			HistorySize: info.HistorySize,
		})
	}
	return out
}

func roomDetail(room *core.Room) proto.RoomDetail {
	members := room.ListMembers()
	if members == nil {
		members = []string{}
	}
	history := room.History()
	if history == nil {
		history = []string{}
	}
	return proto.RoomDetail{
		Name:    room.Name,
		Members: members,
		History: history,
	}
}
