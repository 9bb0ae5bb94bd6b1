package vault

import (
	"errors"

	"github.com/cpadlab/project-key/pkg/vaultfile"
)

// Errors surfaced by the session and repositories. Credential and not-found
// failures from the vault file layer pass through unchanged.
var (
	// ErrNoActiveSession indicates no vault is open (or the cached key could
	// not silently reopen it).
	ErrNoActiveSession = errors.New("vault: no active session")

	// ErrInvalidCredentials indicates a wrong master password or keyfile.
	ErrInvalidCredentials = vaultfile.ErrInvalidCredentials

	// ErrVaultNotFound indicates no vault file exists at the given path.
	ErrVaultNotFound = vaultfile.ErrVaultNotFound

	// ErrVaultExists indicates a vault file already exists at the given path.
	ErrVaultExists = vaultfile.ErrVaultExists

	// ErrEntryNotFound indicates no entry carries the requested id.
	ErrEntryNotFound = errors.New("vault: entry not found")

	// ErrGroupNotFound indicates no group carries the requested name.
	ErrGroupNotFound = errors.New("vault: group not found")

	// ErrGroupExists indicates a group name collision.
	ErrGroupExists = errors.New("vault: group already exists with this name")

	// ErrGroupSelfMove indicates a group delete that names the deleted group
	// itself as the destination for its entries.
	ErrGroupSelfMove = errors.New("vault: cannot move entries into the group being deleted")

	// ErrGroupNotEmpty indicates a delete of a populated group without a
	// destination or force flag.
	ErrGroupNotEmpty = errors.New("vault: group is not empty, move its entries or force deletion")

	// ErrGroupReserved indicates an attempt to delete or rename a reserved
	// group (the root container or the default landing group).
	ErrGroupReserved = errors.New("vault: group is reserved")

	// ErrTitleRequired indicates an entry without a title.
	ErrTitleRequired = errors.New("vault: entry title must not be empty")

	// ErrPasswordRequired indicates an entry without a password.
	ErrPasswordRequired = errors.New("vault: entry password must not be empty")
)
