package block

import (
	"strings"

	"github.com/pkg/errors"
)

// ContainerID addresses where a block lives: the root sequence or one folder's children.
type ContainerID string

// Root is the top-level sequence of a workspace.
const Root ContainerID = "root"

const folderPrefix = "folder-"

var (
	ErrUnknownContainer = errors.New("unknown container")
	ErrNestedFolder     = errors.New("folders cannot be nested")
)

// FolderContainer returns the container holding the children of the given folder.
func FolderContainer(folderID string) ContainerID {
	return ContainerID(folderPrefix + folderID)
}

// FolderID returns the folder id addressed by c, if c is a folder container.
func (c ContainerID) FolderID() (string, bool) {
	s := string(c)
	if !strings.HasPrefix(s, folderPrefix) || len(s) == len(folderPrefix) {
		return "", false
	}
	return s[len(folderPrefix):], true
}

// ParseContainer validates the textual form of a container id.
func ParseContainer(s string) (ContainerID, error) {
	c := ContainerID(s)
	if c == Root {
		return c, nil
	}
	if _, ok := c.FolderID(); ok {
		return c, nil
	}
	return "", errors.Wrapf(ErrUnknownContainer, "parsing %q", s)
}
