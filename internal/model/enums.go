package model

type TopicStatus string

const (
	TopicStatusActive    TopicStatus = "active"
	TopicStatusConverted TopicStatus = "converted"
)

// TopicSort selects the ordering of the votable topic list.
type TopicSort string

const (
	TopicSortVotes  TopicSort = "votes"
	TopicSortNewest TopicSort = "newest"
)

func ParseTopicSort(s string) TopicSort {
	if s == string(TopicSortNewest) {
		return TopicSortNewest
	}
	return TopicSortVotes
}
