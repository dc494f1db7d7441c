package importer

import "github.com/tracyhatemice/mailimport/internal/host"

// checkWhitelist disables the importer when there is no sender to accept
// mail from and raises the dirty-state signal with the host.
func (i *Importer) checkWhitelist(dirty host.DirtyNotifier) {
	if i.whitelist.Len() > 0 {
		return
	}

	i.logger.Error("no addresses to accept messages from",
		"whitelist", i.settings.WhitelistPath,
		"fallback_key", KeyReadFrom,
	)
	i.disabled = true
	if dirty != nil {
		dirty.MarkDirty(Kind, i.name, i.print)
	}
}
